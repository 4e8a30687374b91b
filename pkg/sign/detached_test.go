package sign

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurotz/tzgate/pkg/b58check"
	"github.com/eurotz/tzgate/pkg/hexbuf"
)

func TestDigest(t *testing.T) {
	assert.Equal(t, testDigestHex, hexbuf.Encode(Digest(hexbuf.MustDecode(testMessage))))
	assert.Len(t, Digest(nil), 32)
}

func TestSignDetached(t *testing.T) {
	t.Run("Known vector", func(t *testing.T) {
		for _, key := range []string{testSecretKey, testSeed} {
			sig, err := SignDetached(testMessage, key)
			require.NoError(t, err)
			assert.Equal(t, testSignature, sig.String())
			assert.Equal(t, b58check.KindSignature, sig.Kind)
			assert.True(t, strings.HasPrefix(sig.String(), "edsig"))
			assert.Len(t, sig.String(), 99)
		}
	})

	t.Run("Upper case message", func(t *testing.T) {
		sig, err := SignDetached(strings.ToUpper(testMessage), testSecretKey)
		require.NoError(t, err)
		assert.Equal(t, testSignature, sig.String())
	})

	t.Run("Signature verifies against the digest", func(t *testing.T) {
		sig, err := SignDetached(testMessage, testSecretKey)
		require.NoError(t, err)
		raw, err := sig.Payload()
		require.NoError(t, err)
		assert.True(t, ed25519.Verify(hexbuf.MustDecode(testPubHex), hexbuf.MustDecode(testDigestHex), raw))
	})

	t.Run("Empty message", func(t *testing.T) {
		sig, err := SignDetached("", testSecretKey)
		require.NoError(t, err)
		pub, err := ParsePublicKey(testPublicKey)
		require.NoError(t, err)
		assert.NoError(t, VerifyDetached("", sig, pub))
	})

	t.Run("Secp256k1 key", func(t *testing.T) {
		sig, err := SignDetached(testMessage, testSecpSecret)
		require.NoError(t, err)
		assert.Equal(t, b58check.KindSecp256k1Signature, sig.Kind)
		assert.True(t, strings.HasPrefix(sig.String(), "spsig1"))

		pub, err := ParsePublicKey(testSecpPublicKey)
		require.NoError(t, err)
		assert.NoError(t, VerifyDetached(testMessage, sig, pub))
	})

	t.Run("Malformed message", func(t *testing.T) {
		for _, msg := range []string{"0", "xyz0", "0x03ab"} {
			_, err := SignDetached(msg, testSecretKey)
			assert.ErrorIs(t, err, hexbuf.ErrMalformedHex, msg)
		}
	})

	t.Run("Invalid secret key", func(t *testing.T) {
		shortEdsk := b58check.Encode(b58check.PrefixFor(b58check.KindSecretKey), make([]byte, 63))
		mismatched := b58check.MustEncodeKind(b58check.KindSecretKey, append(
			hexbuf.MustDecode("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"),
			make([]byte, 32)...,
		)).String()

		tests := []struct {
			name string
			key  string
		}{
			{"Public key", testPublicKey},
			{"Address", testAddress},
			{"Wrong payload length", shortEdsk},
			{"Public half mismatch", mismatched},
			{"Empty", ""},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				_, err := SignDetached(testMessage, test.key)
				assert.ErrorIs(t, err, ErrInvalidSecretKey)
				assert.True(t, IsInvalidKey(err))
			})
		}
	})

	t.Run("Corrupted secret key", func(t *testing.T) {
		corrupted := testSecretKey[:20] + "1" + testSecretKey[21:]
		_, err := SignDetached(testMessage, corrupted)
		assert.ErrorIs(t, err, ErrInvalidSecretKey)
		assert.ErrorIs(t, err, b58check.ErrChecksumMismatch)
	})
}

func TestVerifyDetached(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKey)
	require.NoError(t, err)
	sig := b58check.MustParse(testSignature)

	assert.NoError(t, VerifyDetached(testMessage, sig, pub))

	t.Run("Different message", func(t *testing.T) {
		err := VerifyDetached(testMessage[:len(testMessage)-2]+"01", sig, pub)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("Different key", func(t *testing.T) {
		other, err := NewEd25519Signer(make([]byte, 32))
		require.NoError(t, err)
		err = VerifyDetached(testMessage, sig, other.PublicKey())
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("Generic signature", func(t *testing.T) {
		generic := b58check.MustEncodeKind(b58check.KindGenericSignature, hexbuf.MustDecode(testSignatureHex))
		assert.True(t, strings.HasPrefix(generic.String(), "sig"))
		assert.NoError(t, VerifyDetached(testMessage, generic, pub))
	})

	t.Run("Scheme mismatch", func(t *testing.T) {
		secp, err := ParsePublicKey(testSecpPublicKey)
		require.NoError(t, err)
		err = VerifyDetached(testMessage, sig, secp)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("Not a signature", func(t *testing.T) {
		err := VerifyDetached(testMessage, b58check.MustParse(testPublicKey), pub)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestParsePublicKey(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKey)
	require.NoError(t, err)
	assert.Equal(t, TypeEd25519, pub.Type())
	assert.Equal(t, testAddress, pub.Address().String())

	_, err = ParsePublicKey(testSeed)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = ParsePublicKey("edpk")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestSignBytes(t *testing.T) {
	signer, err := NewSignerFromEncoded(testSeed)
	require.NoError(t, err)

	d, err := SignBytes(signer, hexbuf.MustDecode(testMessage))
	require.NoError(t, err)
	assert.Equal(t, testDigestHex, hexbuf.Encode(d.Digest))
	assert.Equal(t, testSignatureHex, hexbuf.Encode(d.Signature))
	assert.Equal(t, testSignature, d.Encoded.String())

	_, err = SignBytes(NewMockSigner("mock"), []byte("data"))
	assert.Error(t, err)
}
