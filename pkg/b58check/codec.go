package b58check

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const checksumLen = 4

var (
	// ErrInvalidCharacter is returned when the input contains a character outside the base58 alphabet.
	ErrInvalidCharacter = errors.New("invalid base58 character")
	// ErrChecksumMismatch is returned when the trailing checksum does not match the decoded data.
	ErrChecksumMismatch = errors.New("base58check checksum mismatch")
	// ErrTooShort is returned when the decoded data cannot hold the prefix and checksum.
	ErrTooShort = errors.New("base58check input too short")
)

// Encode renders base58(prefix || payload || checksum) where checksum is the
// first four bytes of a double SHA-256 over prefix || payload.
func Encode(prefix, payload []byte) string {
	n := len(prefix) + len(payload)
	buf := make([]byte, n+checksumLen)
	copy(buf, prefix)
	copy(buf[len(prefix):], payload)
	copy(buf[n:], checksum(buf[:n]))

	return base58.Encode(buf)
}

// Decode verifies the checksum of input and strips len(prefix) leading bytes.
//
// The embedded prefix bytes are not compared against prefix: a caller passing
// the wrong prefix silently receives a mis-sized payload. Use DecodeKind or
// Encoded.Payload for the checked variant.
func Decode(input string, prefix []byte) ([]byte, error) {
	raw, err := decodeChecked(input)
	if err != nil {
		return nil, err
	}
	if len(raw) < len(prefix) {
		return nil, fmt.Errorf("%w: %d bytes cannot hold a %d byte prefix", ErrTooShort, len(raw), len(prefix))
	}
	return raw[len(prefix):], nil
}

// decodeChecked base58-decodes input, validates and strips the checksum.
func decodeChecked(input string) ([]byte, error) {
	if input == "" {
		return nil, ErrTooShort
	}
	buf, err := base58.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}
	if len(buf) < checksumLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(buf))
	}

	n := len(buf) - checksumLen
	if !bytes.Equal(checksum(buf[:n]), buf[n:]) {
		return nil, ErrChecksumMismatch
	}
	return buf[:n], nil
}

func checksum(data []byte) []byte {
	sum1 := sha256.Sum256(data)
	sum2 := sha256.Sum256(sum1[:])
	return sum2[:checksumLen]
}
