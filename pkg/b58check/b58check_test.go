package b58check

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurotz/tzgate/pkg/hexbuf"
)

const (
	// RFC 8032 test 1 key pair as a 64 byte secret key (seed || public key).
	testSecretKey = "edskRxbzm4vq4ivncG4kaQH6dLNiZn57NVxfyg1bnsazDdcDRacLQmSQc8RLs8KEBjoQnGRnzVhG96mvJJ2khmhhc2LxZB6gs8"
	testSeed      = "edsk3sDP6GEtZDNCNa7cAKHnRUVoN5i9K3baFkienK9LDq2yQzfhnA"
	testPublicKey = "edpkvH4rzbmfvAEgiJQU1TKYfrTvBbpVJGHmQByh9Nph4BzvRh8aXP"
	testAddress   = "tz1N7tYGMGs3GGjeJAJKtbycAWcvoPNSUYgu"
	testSignature = "edsigtnxsWwwDrp54Q47hNLVYyWdQsdU3rSuz2GqFei2nNRbfyXFucPndiyebEou7sJSnX3u75PK8UbjLmNm9oDKoMHKSbSLQka"

	testSeedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	testPubHex  = "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"

	// Script expression hash of the packed Michelson int 0.
	zeroExprKey = "exprtZBwZUeYYYfUs9B9Rg2ywHezVHnCCnmF9WsDQVrs582dSK63dC"
)

func TestKindRegistry(t *testing.T) {
	t.Run("Prefixes", func(t *testing.T) {
		tests := []struct {
			kind       Kind
			name       string
			prefix     []byte
			payloadLen int
		}{
			{KindSecretKey, "edsk", []byte{43, 246, 78, 7}, 64},
			{KindSignature, "edsig", []byte{9, 245, 205, 134, 18}, 64},
			{KindScriptExpr, "expr", []byte{13, 44, 64, 27}, 32},
			{KindSeed, "edsk", []byte{13, 15, 58, 7}, 32},
			{KindPublicKey, "edpk", []byte{13, 15, 37, 217}, 32},
			{KindPublicKeyHash, "tz1", []byte{6, 161, 159}, 20},
			{KindSecp256k1SecretKey, "spsk", []byte{17, 162, 224, 201}, 32},
			{KindSecp256k1PublicKey, "sppk", []byte{3, 254, 226, 86}, 33},
			{KindSecp256k1PublicKeyHash, "tz2", []byte{6, 161, 161}, 20},
			{KindSecp256k1Signature, "spsig1", []byte{13, 115, 101, 19, 63}, 64},
			{KindGenericSignature, "sig", []byte{4, 130, 43}, 64},
			{KindP256PublicKeyHash, "tz3", []byte{6, 161, 164}, 20},
			{KindContractHash, "KT1", []byte{2, 90, 121}, 20},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				assert.Equal(t, test.prefix, PrefixFor(test.kind))
				assert.Equal(t, test.name, test.kind.String())
				assert.Equal(t, test.payloadLen, test.kind.PayloadLen())
				assert.True(t, test.kind.IsValid())
			})
		}
		assert.Len(t, Kinds(), len(tests))
	})

	t.Run("Encoded strings start with the readable prefix", func(t *testing.T) {
		for _, kind := range Kinds() {
			for _, fill := range []byte{0x00, 0xff} {
				payload := bytes.Repeat([]byte{fill}, kind.PayloadLen())
				e, err := EncodeKind(kind, payload)
				require.NoError(t, err)
				assert.True(t, len(e.Value) > len(kind.String()))
				assert.Equal(t, kind.String(), e.Value[:len(kind.String())], "kind %s", kind)
			}
		}
	})

	t.Run("Invalid kind", func(t *testing.T) {
		assert.Nil(t, PrefixFor(KindInvalid))
		assert.Nil(t, PrefixFor(Kind(200)))
		assert.False(t, KindInvalid.IsValid())
		assert.Equal(t, "invalid", Kind(200).String())
		assert.Equal(t, 0, Kind(200).PayloadLen())
	})

	t.Run("Returned prefix is a copy", func(t *testing.T) {
		p := PrefixFor(KindScriptExpr)
		p[0] = 0xff
		assert.Equal(t, []byte{13, 44, 64, 27}, PrefixFor(KindScriptExpr))
	})

	t.Run("Classification", func(t *testing.T) {
		assert.True(t, KindSecretKey.IsSecretKey())
		assert.True(t, KindSeed.IsSecretKey())
		assert.True(t, KindSecp256k1SecretKey.IsSecretKey())
		assert.False(t, KindPublicKey.IsSecretKey())
		assert.True(t, KindSignature.IsSignature())
		assert.True(t, KindSecp256k1Signature.IsSignature())
		assert.False(t, KindScriptExpr.IsSignature())
		assert.True(t, KindContractHash.IsAccount())
		assert.True(t, KindP256PublicKeyHash.IsAccount())
		assert.True(t, KindPublicKeyHash.IsAccount())
		assert.False(t, KindPublicKey.IsAccount())
	})
}

func TestEncodeDecode(t *testing.T) {
	t.Run("Known vectors", func(t *testing.T) {
		seed := hexbuf.MustDecode(testSeedHex)
		pub := hexbuf.MustDecode(testPubHex)

		assert.Equal(t, testSeed, Encode(PrefixFor(KindSeed), seed))
		assert.Equal(t, testSecretKey, Encode(PrefixFor(KindSecretKey), append(append([]byte{}, seed...), pub...)))
		assert.Equal(t, testPublicKey, Encode(PrefixFor(KindPublicKey), pub))
	})

	t.Run("Round trip", func(t *testing.T) {
		for _, kind := range Kinds() {
			payload := make([]byte, kind.PayloadLen())
			for i := range payload {
				payload[i] = byte(i*7 + int(kind))
			}

			encoded := Encode(PrefixFor(kind), payload)
			decoded, err := Decode(encoded, PrefixFor(kind))
			require.NoError(t, err)
			assert.Equal(t, payload, decoded, "kind %s", kind)
		}
	})

	t.Run("Leading zero bytes render as 1", func(t *testing.T) {
		encoded := Encode(nil, []byte{0x00, 0x00, 0x01})
		assert.Equal(t, "11", encoded[:2])

		decoded, err := Decode(encoded, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x00, 0x01}, decoded)
	})

	t.Run("Invalid character", func(t *testing.T) {
		for _, input := range []string{"exprO", "0abc", "Il", "edsk+"} {
			_, err := Decode(input, PrefixFor(KindScriptExpr))
			assert.ErrorIs(t, err, ErrInvalidCharacter, input)
		}
	})

	t.Run("Too short", func(t *testing.T) {
		_, err := Decode("", nil)
		assert.ErrorIs(t, err, ErrTooShort)

		_, err = Decode("2", nil)
		assert.ErrorIs(t, err, ErrTooShort)

		// Valid checksum but fewer bytes than the prefix.
		_, err = Decode(Encode(nil, []byte{0x01}), PrefixFor(KindSignature))
		assert.ErrorIs(t, err, ErrTooShort)
	})

	t.Run("Tamper detection", func(t *testing.T) {
		for _, valid := range []string{zeroExprKey, testSignature} {
			for i := 0; i < len(valid); i++ {
				tampered := valid[:i] + string(nextAlphabetChar(valid[i])) + valid[i+1:]
				_, err := Decode(tampered, nil)
				assert.ErrorIs(t, err, ErrChecksumMismatch, "flip at %d", i)
			}
		}
	})
}

func TestLenientDecodeWithWrongPrefix(t *testing.T) {
	// Decode does not compare prefixes: a secret key decoded with the
	// signature prefix loses one extra leading byte and comes back with 63 bytes.
	payload, err := Decode(testSecretKey, PrefixFor(KindSignature))
	require.NoError(t, err)
	assert.Len(t, payload, 63)

	seed := hexbuf.MustDecode(testSeedHex)
	assert.Equal(t, seed[1:], payload[:31])
}

func TestStrictDecode(t *testing.T) {
	t.Run("Matching kind", func(t *testing.T) {
		payload, err := DecodeKind(testSeed, KindSeed)
		require.NoError(t, err)
		assert.Equal(t, hexbuf.MustDecode(testSeedHex), payload)

		payload, err = DecodeKind(testSecretKey, KindSecretKey)
		require.NoError(t, err)
		assert.Len(t, payload, 64)
	})

	t.Run("Secret key decoded as signature is rejected", func(t *testing.T) {
		_, err := DecodeKind(testSecretKey, KindSignature)
		assert.ErrorIs(t, err, ErrPrefixMismatch)
	})

	t.Run("Same readable prefix, different length", func(t *testing.T) {
		_, err := DecodeKind(testSeed, KindSecretKey)
		assert.ErrorIs(t, err, ErrPrefixMismatch)
	})

	t.Run("Right prefix, wrong length", func(t *testing.T) {
		short := Encode(PrefixFor(KindScriptExpr), make([]byte, 31))
		_, err := DecodeKind(short, KindScriptExpr)
		assert.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("Unknown kind", func(t *testing.T) {
		_, err := DecodeKind(zeroExprKey, KindInvalid)
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("Checksum is still verified", func(t *testing.T) {
		tampered := zeroExprKey[:10] + string(nextAlphabetChar(zeroExprKey[10])) + zeroExprKey[11:]
		_, err := DecodeKind(tampered, KindScriptExpr)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})
}

func TestEncodeKind(t *testing.T) {
	e, err := EncodeKind(KindScriptExpr, make([]byte, 32))
	require.NoError(t, err)
	assert.Equal(t, KindScriptExpr, e.Kind)
	assert.Equal(t, "exprtWsu7N8st7XBhS685Qa2B4xP6TuTN9ve9UPCU29fV94ySDo5Va", e.String())

	_, err = EncodeKind(KindScriptExpr, make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = EncodeKind(KindInvalid, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Panics(t, func() { MustEncodeKind(KindSignature, []byte{1}) })
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{testSecretKey, KindSecretKey},
		{testSeed, KindSeed},
		{testPublicKey, KindPublicKey},
		{testAddress, KindPublicKeyHash},
		{testSignature, KindSignature},
		{zeroExprKey, KindScriptExpr},
	}

	for _, test := range tests {
		t.Run(test.kind.String(), func(t *testing.T) {
			e, err := Parse(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.kind, e.Kind)
			assert.Equal(t, test.input, e.Value)
			assert.True(t, e.IsValid())

			payload, err := e.Payload()
			require.NoError(t, err)
			assert.Len(t, payload, test.kind.PayloadLen())
		})
	}

	t.Run("Unknown prefix", func(t *testing.T) {
		_, err := Parse(Encode([]byte{0x01, 0x02}, make([]byte, 10)))
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("Mistagged value is invalid", func(t *testing.T) {
		e := Encoded{Kind: KindSignature, Value: testSecretKey}
		assert.False(t, e.IsValid())
		_, err := e.Payload()
		assert.ErrorIs(t, err, ErrPrefixMismatch)
	})

	t.Run("MustParse", func(t *testing.T) {
		assert.Equal(t, KindScriptExpr, MustParse(zeroExprKey).Kind)
		assert.Panics(t, func() { MustParse("expr") })
	})
}

func TestEncodedJSON(t *testing.T) {
	type payload struct {
		Key Encoded `json:"key"`
	}

	in := payload{Key: MustParse(zeroExprKey)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"`+zeroExprKey+`"}`, string(data))

	var out payload
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Key.IsEqual(out.Key))

	err = json.Unmarshal([]byte(`{"key":"exprfoo"}`), &out)
	assert.Error(t, err)
}

func nextAlphabetChar(c byte) byte {
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	i := bytes.IndexByte([]byte(alphabet), c)
	return alphabet[(i+1)%len(alphabet)]
}
