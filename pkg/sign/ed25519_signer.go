package sign

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/eurotz/tzgate/pkg/b58check"
)

var _ Signer = (*Ed25519Signer)(nil)
var _ PublicKey = Ed25519PublicKey{}

// Ed25519PublicKey is a tz1 account key.
type Ed25519PublicKey struct{ ed25519.PublicKey }

func (p Ed25519PublicKey) Type() Type    { return TypeEd25519 }
func (p Ed25519PublicKey) Bytes() []byte { return []byte(p.PublicKey) }

func (p Ed25519PublicKey) Address() Address {
	return mustAddress(TypeEd25519, p.PublicKey)
}

func (p Ed25519PublicKey) Encoded() b58check.Encoded {
	return b58check.MustEncodeKind(b58check.KindPublicKey, p.PublicKey)
}

func (p Ed25519PublicKey) Verify(digest []byte, sig Signature) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(p.PublicKey, digest, sig)
}

// Ed25519Signer signs with an Ed25519 key. Signatures are deterministic.
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  Ed25519PublicKey
}

// NewEd25519Signer accepts either a 32 byte seed or a 64 byte expanded secret
// key (seed followed by the public key). An expanded key whose public half does
// not match its seed is rejected.
func NewEd25519Signer(secret []byte) (*Ed25519Signer, error) {
	var seed []byte
	switch len(secret) {
	case ed25519.SeedSize:
		seed = secret
	case ed25519.PrivateKeySize:
		seed = secret[:ed25519.SeedSize]
	default:
		return nil, fmt.Errorf("%w: ed25519 key must be %d or %d bytes, got %d",
			ErrInvalidSecretKey, ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
	}

	key := ed25519.NewKeyFromSeed(seed)
	pub := key.Public().(ed25519.PublicKey)
	if len(secret) == ed25519.PrivateKeySize && !bytes.Equal(secret[ed25519.SeedSize:], pub) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidSecretKey)
	}

	return &Ed25519Signer{
		privateKey: key,
		publicKey:  Ed25519PublicKey{pub},
	}, nil
}

func (s *Ed25519Signer) PublicKey() PublicKey { return s.publicKey }

// Sign signs the digest as is; Ed25519 hashes internally, so any length is accepted.
func (s *Ed25519Signer) Sign(digest []byte) (Signature, error) {
	return Signature(ed25519.Sign(s.privateKey, digest)), nil
}

func mustAddress(t Type, pub []byte) TezosAddress {
	addr, err := NewTezosAddress(t, pub)
	if err != nil {
		panic(err)
	}
	return addr
}
