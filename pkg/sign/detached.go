package sign

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/eurotz/tzgate/pkg/b58check"
	"github.com/eurotz/tzgate/pkg/hexbuf"
)

// Digest is the BLAKE2b-256 hash that gets signed for a forged operation or packed payload.
func Digest(message []byte) []byte {
	sum := blake2b.Sum256(message)
	return sum[:]
}

// Detached is a signature produced over a message without embedding the message.
type Detached struct {
	Digest    []byte
	Signature Signature
	Encoded   b58check.Encoded
}

// NewSignerFromEncoded builds a signer from a base58check secret key. The kind
// is detected from the prefix and payload length: edsk (64 byte or seed) or spsk.
func NewSignerFromEncoded(secretKey string) (Signer, error) {
	e, err := b58check.Parse(secretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSecretKey, err)
	}
	if !e.Kind.IsSecretKey() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidSecretKey, e.Kind)
	}

	secret, err := e.Payload()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSecretKey, err)
	}

	switch e.Kind {
	case b58check.KindSecp256k1SecretKey:
		return NewSecp256k1Signer(secret)
	default:
		return NewEd25519Signer(secret)
	}
}

// ParsePublicKey parses an edpk or sppk public key.
func ParsePublicKey(publicKey string) (PublicKey, error) {
	e, err := b58check.Parse(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}

	payload, err := e.Payload()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}

	switch e.Kind {
	case b58check.KindPublicKey:
		return Ed25519PublicKey{payload}, nil
	case b58check.KindSecp256k1PublicKey:
		return NewSecp256k1PublicKeyFromBytes(payload)
	default:
		return nil, fmt.Errorf("%w: got %s", ErrInvalidPublicKey, e.Kind)
	}
}

// SignBytes hashes message and signs the digest with signer.
func SignBytes(signer Signer, message []byte) (Detached, error) {
	digest := Digest(message)
	sig, err := signer.Sign(digest)
	if err != nil {
		return Detached{}, fmt.Errorf("could not sign digest: %w", err)
	}
	encoded, err := sig.Encode(signer.PublicKey().Type())
	if err != nil {
		return Detached{}, err
	}
	return Detached{Digest: digest, Signature: sig, Encoded: encoded}, nil
}

// SignDetached signs a hex-encoded message with a base58check secret key and
// returns the encoded signature (edsig... for Ed25519 keys).
func SignDetached(messageHex, secretKey string) (b58check.Encoded, error) {
	message, err := hexbuf.Decode(messageHex)
	if err != nil {
		return b58check.Encoded{}, err
	}
	signer, err := NewSignerFromEncoded(secretKey)
	if err != nil {
		return b58check.Encoded{}, err
	}
	d, err := SignBytes(signer, message)
	if err != nil {
		return b58check.Encoded{}, err
	}
	return d.Encoded, nil
}

// VerifyDetached checks sig against the BLAKE2b-256 digest of the hex-encoded
// message. Generic "sig..." signatures are checked with the key's own scheme.
func VerifyDetached(messageHex string, sig b58check.Encoded, publicKey PublicKey) error {
	message, err := hexbuf.Decode(messageHex)
	if err != nil {
		return err
	}
	raw, t, err := DecodeSignature(sig)
	if err != nil {
		return err
	}
	if t != TypeUnknown && t != publicKey.Type() {
		return fmt.Errorf("%w: %s signature for %s key", ErrInvalidSignature, t, publicKey.Type())
	}
	if !publicKey.Verify(Digest(message), raw) {
		return ErrInvalidSignature
	}
	return nil
}

// IsInvalidKey reports whether err was caused by unusable key material.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidSecretKey) || errors.Is(err, ErrInvalidPublicKey)
}
