// Package hexbuf converts between hex text and raw byte buffers.
//
// Input is bare hex: an even number of case-insensitive hexadecimal digits with
// no "0x" prefix. Anything else is rejected with ErrMalformedHex instead of
// being truncated or padded.
package hexbuf

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrMalformedHex is returned for odd-length input or input with non-hex digits.
var ErrMalformedHex = errors.New("malformed hex")

// Decode converts a hex string into bytes.
func Decode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrMalformedHex, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return b, nil
}

// Encode renders bytes as lowercase hex.
func Encode(b []byte) string {
	return hex.EncodeToString(b)
}

// Normalize validates s and returns its lowercase form.
func Normalize(s string) (string, error) {
	b, err := Decode(s)
	if err != nil {
		return "", err
	}
	return Encode(b), nil
}

// MustDecode is like Decode but panics on malformed input.
// Intended for constants and tests.
func MustDecode(s string) []byte {
	b, err := Decode(s)
	if err != nil {
		panic(err)
	}
	return b
}
