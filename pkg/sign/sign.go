package sign

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eurotz/tzgate/pkg/b58check"
)

var (
	// ErrInvalidSecretKey is returned when secret key material cannot be used by any signing primitive.
	ErrInvalidSecretKey = errors.New("invalid secret key")
	// ErrInvalidPublicKey is returned when public key material cannot be parsed.
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer signs 32 byte digests. Callers hash the payload first; see Digest.
type Signer interface {
	PublicKey() PublicKey
	Sign(digest []byte) (Signature, error)
}

// PublicKey is the verifying half of a Signer.
type PublicKey interface {
	Type() Type
	Address() Address
	Bytes() []byte
	// Encoded returns the base58check form (edpk..., sppk...).
	Encoded() b58check.Encoded
	Verify(digest []byte, sig Signature) bool
}

// Address identifies an account.
type Address interface {
	fmt.Stringer

	// Equals returns true if this address equals the other address.
	Equals(other Address) bool
}

// Signature is a raw signature. Both supported curves produce 64 bytes, so the
// signing Type must be known to encode it.
type Signature []byte

// Type is the signature scheme of a key.
type Type uint8

const (
	TypeEd25519 Type = iota
	TypeSecp256k1
	TypeUnknown Type = 255
)

func (t Type) String() string {
	switch t {
	case TypeEd25519:
		return "Ed25519"
	case TypeSecp256k1:
		return "Secp256k1"
	default:
		return "Unknown"
	}
}

// SignatureKind returns the encoding kind of signatures produced with t.
func (t Type) SignatureKind() b58check.Kind {
	switch t {
	case TypeEd25519:
		return b58check.KindSignature
	case TypeSecp256k1:
		return b58check.KindSecp256k1Signature
	default:
		return b58check.KindInvalid
	}
}

// PublicKeyKind returns the encoding kind of public keys of type t.
func (t Type) PublicKeyKind() b58check.Kind {
	switch t {
	case TypeEd25519:
		return b58check.KindPublicKey
	case TypeSecp256k1:
		return b58check.KindSecp256k1PublicKey
	default:
		return b58check.KindInvalid
	}
}

// AddressKind returns the encoding kind of addresses (public key hashes) of type t.
func (t Type) AddressKind() b58check.Kind {
	switch t {
	case TypeEd25519:
		return b58check.KindPublicKeyHash
	case TypeSecp256k1:
		return b58check.KindSecp256k1PublicKeyHash
	default:
		return b58check.KindInvalid
	}
}

// TypeOf maps an encoding kind to the signature scheme it belongs to.
func TypeOf(kind b58check.Kind) Type {
	switch kind {
	case b58check.KindSecretKey, b58check.KindSeed, b58check.KindPublicKey,
		b58check.KindPublicKeyHash, b58check.KindSignature:
		return TypeEd25519
	case b58check.KindSecp256k1SecretKey, b58check.KindSecp256k1PublicKey,
		b58check.KindSecp256k1PublicKeyHash, b58check.KindSecp256k1Signature:
		return TypeSecp256k1
	default:
		return TypeUnknown
	}
}

// Encode renders s with the signature prefix of t.
func (s Signature) Encode(t Type) (b58check.Encoded, error) {
	kind := t.SignatureKind()
	if kind == b58check.KindInvalid {
		return b58check.Encoded{}, fmt.Errorf("unsupported signature type: %s", t)
	}
	return b58check.EncodeKind(kind, s)
}

// DecodeSignature returns the raw bytes of an encoded signature. Generic
// "sig..." signatures decode with TypeUnknown.
func DecodeSignature(e b58check.Encoded) (Signature, Type, error) {
	if !e.Kind.IsSignature() {
		return nil, TypeUnknown, fmt.Errorf("%w: %s is not a signature", ErrInvalidSignature, e.Kind)
	}
	payload, err := e.Payload()
	if err != nil {
		return nil, TypeUnknown, err
	}
	return Signature(payload), TypeOf(e.Kind), nil
}

// MarshalJSON encodes the signature as a 0x-prefixed hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	decoded, err := hexutil.Decode(hexStr)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

func (s Signature) String() string {
	return hexutil.Encode(s)
}
