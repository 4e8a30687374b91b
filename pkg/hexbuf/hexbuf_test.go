package hexbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("Valid input", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected []byte
		}{
			{"Empty", "", []byte{}},
			{"Lowercase", "00ff10", []byte{0x00, 0xff, 0x10}},
			{"Uppercase", "ABCDEF", []byte{0xab, 0xcd, 0xef}},
			{"Mixed case", "aBcD", []byte{0xab, 0xcd}},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				b, err := Decode(test.input)
				require.NoError(t, err)
				assert.Equal(t, test.expected, b)
			})
		}
	})

	t.Run("Malformed input", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"Odd length", "abc"},
			{"Single digit", "a"},
			{"Non-hex digit", "zz"},
			{"0x prefix", "0x00"},
			{"Whitespace", "00 11"},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				b, err := Decode(test.input)
				assert.ErrorIs(t, err, ErrMalformedHex)
				assert.Nil(t, b)
			})
		}
	})
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "00ff10", Encode([]byte{0x00, 0xff, 0x10}))
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{"", "00", "DEADbeef", "050a0000001600001b3517cf5af0ac86b8efe88452908c45f5c7e079"}

	for _, s := range inputs {
		b, err := Decode(s)
		require.NoError(t, err)

		normalized, err := Normalize(s)
		require.NoError(t, err)
		assert.Equal(t, normalized, Encode(b))
	}

	normalized, err := Normalize("DEADbeef")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", normalized)

	_, err = Normalize("0")
	assert.ErrorIs(t, err, ErrMalformedHex)
}

func TestMustDecode(t *testing.T) {
	assert.Equal(t, []byte{0x01}, MustDecode("01"))
	assert.Panics(t, func() { MustDecode("0") })
}
