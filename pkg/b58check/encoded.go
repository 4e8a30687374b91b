package b58check

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrPrefixMismatch is returned when the prefix embedded in a string is not the one expected for its kind.
	ErrPrefixMismatch = errors.New("base58check prefix mismatch")
	// ErrInvalidLength is returned when a payload does not have the fixed length of its kind.
	ErrInvalidLength = errors.New("invalid payload length")
	// ErrUnknownKind is returned when no registered kind matches the input.
	ErrUnknownKind = errors.New("unknown encoding kind")
)

// Encoded is a base58check string tagged with the kind used to produce it,
// so that decoding always checks against the right prefix.
type Encoded struct {
	Kind  Kind
	Value string
}

// EncodeKind encodes payload with the prefix registered for kind.
func EncodeKind(kind Kind, payload []byte) (Encoded, error) {
	if !kind.IsValid() {
		return Encoded{}, ErrUnknownKind
	}
	if len(payload) != kind.PayloadLen() {
		return Encoded{}, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrInvalidLength, kind, kind.PayloadLen(), len(payload))
	}
	return Encoded{Kind: kind, Value: Encode(registry[kind].prefix, payload)}, nil
}

// MustEncodeKind is like EncodeKind but panics on error.
func MustEncodeKind(kind Kind, payload []byte) Encoded {
	e, err := EncodeKind(kind, payload)
	if err != nil {
		panic(err)
	}
	return e
}

// DecodeKind decodes input and checks both the embedded prefix and the
// payload length against kind.
func DecodeKind(input string, kind Kind) ([]byte, error) {
	info, ok := registry[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	raw, err := decodeChecked(input)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(raw, info.prefix) {
		return nil, fmt.Errorf("%w: input is not %s", ErrPrefixMismatch, kind)
	}
	payload := raw[len(info.prefix):]
	if len(payload) != info.payloadLen {
		return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrInvalidLength, kind, info.payloadLen, len(payload))
	}
	return payload, nil
}

// Parse decodes an untagged string and identifies its kind from the embedded
// prefix and payload length.
func Parse(input string) (Encoded, error) {
	raw, err := decodeChecked(input)
	if err != nil {
		return Encoded{}, err
	}
	for _, kind := range Kinds() {
		info := registry[kind]
		if bytes.HasPrefix(raw, info.prefix) && len(raw)-len(info.prefix) == info.payloadLen {
			return Encoded{Kind: kind, Value: input}, nil
		}
	}
	return Encoded{}, ErrUnknownKind
}

// MustParse is like Parse but panics on error.
func MustParse(input string) Encoded {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

// Payload returns the checked payload bytes.
func (e Encoded) Payload() ([]byte, error) {
	return DecodeKind(e.Value, e.Kind)
}

// IsValid reports whether e carries a registered kind and a value that decodes as that kind.
func (e Encoded) IsValid() bool {
	_, err := e.Payload()
	return err == nil
}

// IsEqual reports whether both kind and value match.
func (e Encoded) IsEqual(other Encoded) bool {
	return e.Kind == other.Kind && e.Value == other.Value
}

// String returns the encoded value.
func (e Encoded) String() string {
	return e.Value
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoded) MarshalText() ([]byte, error) {
	return []byte(e.Value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The kind is detected with Parse.
func (e *Encoded) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
