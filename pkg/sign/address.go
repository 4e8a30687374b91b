package sign

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/eurotz/tzgate/pkg/b58check"
)

const publicKeyHashLen = 20

var _ Address = TezosAddress{}

// TezosAddress is an implicit account address (tz1 or tz2).
type TezosAddress struct{ b58check.Encoded }

// NewTezosAddress derives the address of a public key: BLAKE2b-160 of the key bytes.
func NewTezosAddress(t Type, publicKey []byte) (TezosAddress, error) {
	h, err := blake2b.New(publicKeyHashLen, nil)
	if err != nil {
		return TezosAddress{}, err
	}
	h.Write(publicKey)

	e, err := b58check.EncodeKind(t.AddressKind(), h.Sum(nil))
	if err != nil {
		return TezosAddress{}, fmt.Errorf("could not encode %s address: %w", t, err)
	}
	return TezosAddress{e}, nil
}

// ParseAddress parses a tz1 or tz2 address.
func ParseAddress(s string) (TezosAddress, error) {
	e, err := b58check.Parse(s)
	if err != nil {
		return TezosAddress{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if e.Kind != b58check.KindPublicKeyHash && e.Kind != b58check.KindSecp256k1PublicKeyHash {
		return TezosAddress{}, fmt.Errorf("invalid address %q: %s is not an implicit account", s, e.Kind)
	}
	return TezosAddress{e}, nil
}

// ParseAccount parses any address that can hold a ledger balance: an implicit
// tz1, tz2 or tz3 account, or a KT1 contract. Only tz1 and tz2 addresses can
// be produced by a Signer.
func ParseAccount(s string) (b58check.Encoded, error) {
	e, err := b58check.Parse(s)
	if err != nil {
		return b58check.Encoded{}, fmt.Errorf("invalid account %q: %w", s, err)
	}
	if !e.Kind.IsAccount() {
		return b58check.Encoded{}, fmt.Errorf("invalid account %q: %s is not an address", s, e.Kind)
	}
	return e, nil
}

// Type returns the signature scheme of the account.
func (a TezosAddress) Type() Type { return TypeOf(a.Kind) }

func (a TezosAddress) Equals(other Address) bool {
	if o, ok := other.(TezosAddress); ok {
		return a.Encoded.IsEqual(o.Encoded)
	}
	return a.String() == other.String()
}
