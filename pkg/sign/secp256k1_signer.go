package sign

import (
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/eurotz/tzgate/pkg/b58check"
)

// Ensure our types implement the interfaces at compile time.
var _ Signer = (*Secp256k1Signer)(nil)
var _ PublicKey = Secp256k1PublicKey{}

// Secp256k1PublicKey is a tz2 account key.
type Secp256k1PublicKey struct{ *ecdsa.PublicKey }

// NewSecp256k1PublicKeyFromBytes parses a 33 byte compressed key.
func NewSecp256k1PublicKeyFromBytes(pubBytes []byte) (Secp256k1PublicKey, error) {
	pub, err := ethcrypto.DecompressPubkey(pubBytes)
	if err != nil {
		return Secp256k1PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return Secp256k1PublicKey{pub}, nil
}

func (p Secp256k1PublicKey) Type() Type { return TypeSecp256k1 }

// Bytes returns the compressed form of the key.
func (p Secp256k1PublicKey) Bytes() []byte { return ethcrypto.CompressPubkey(p.PublicKey) }

func (p Secp256k1PublicKey) Address() Address {
	return mustAddress(TypeSecp256k1, p.Bytes())
}

func (p Secp256k1PublicKey) Encoded() b58check.Encoded {
	return b58check.MustEncodeKind(b58check.KindSecp256k1PublicKey, p.Bytes())
}

// Verify expects a 64 byte [R || S] signature over a 32 byte digest.
func (p Secp256k1PublicKey) Verify(digest []byte, sig Signature) bool {
	if len(sig) != 64 || len(digest) != 32 {
		return false
	}
	return ethcrypto.VerifySignature(p.Bytes(), digest, sig)
}

// Secp256k1Signer signs with a secp256k1 key using RFC 6979 nonces.
type Secp256k1Signer struct {
	privateKey *ecdsa.PrivateKey
	publicKey  Secp256k1PublicKey
}

// NewSecp256k1Signer creates a signer from a 32 byte secret scalar.
func NewSecp256k1Signer(secret []byte) (*Secp256k1Signer, error) {
	key, err := ethcrypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
	}
	return &Secp256k1Signer{
		privateKey: key,
		publicKey:  Secp256k1PublicKey{&key.PublicKey},
	}, nil
}

func (s *Secp256k1Signer) PublicKey() PublicKey { return s.publicKey }

// Sign expects the input to be a 32 byte digest. The recovery byte is dropped.
func (s *Secp256k1Signer) Sign(digest []byte) (Signature, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, err
	}
	return Signature(sig[:64]), nil
}
