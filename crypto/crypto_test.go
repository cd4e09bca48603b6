package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "empty_chunk", plaintext: []byte{}},
		{name: "single_byte", plaintext: []byte{0x42}},
		{name: "text_chunk", plaintext: []byte("hello, flux")},
		{name: "full_chunk", plaintext: bytes.Repeat([]byte{0xab}, 4096)},
	}

	salt, err := GenerateSalt()
	require.NoError(t, err)
	key := DeriveKey("p@ss", salt)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Seal(key, tt.plaintext)
			require.NoError(t, err)
			require.Len(t, sealed, len(tt.plaintext)+Overhead)

			opened, err := Open(key, sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, opened)
		})
	}
}

func TestOpenWrongPasswordFails(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	sealed, err := Seal(DeriveKey("correct horse", salt), []byte("secret payload"))
	require.NoError(t, err)

	_, err = Open(DeriveKey("battery staple", salt), sealed)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestOpenTamperedChunkFails(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key := DeriveKey("p@ss", salt)

	sealed, err := Seal(key, []byte("integrity matters"))
	require.NoError(t, err)

	// Flip one ciphertext bit.
	sealed[len(sealed)-1] ^= 0x01
	_, err = Open(key, sealed)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestOpenRejectsShortInput(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	_, err = Open(DeriveKey("p@ss", salt), make([]byte, Overhead-1))
	assert.ErrorIs(t, err, ErrSealedTooShort)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	a := DeriveKey("p@ss", salt)
	b := DeriveKey("p@ss", salt)
	assert.Equal(t, a, b, "same password and salt must derive the same key")
}

func TestDeriveKeySaltChangesKey(t *testing.T) {
	saltA, err := GenerateSalt()
	require.NoError(t, err)
	saltB, err := GenerateSalt()
	require.NoError(t, err)
	require.NotEqual(t, saltA, saltB)

	a := DeriveKey("p@ss", saltA)
	b := DeriveKey("p@ss", saltB)
	assert.NotEqual(t, a, b, "distinct salts must derive distinct keys")
}

func TestSealFreshNoncePerChunk(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key := DeriveKey("p@ss", salt)

	first, err := Seal(key, []byte("same plaintext"))
	require.NoError(t, err)
	second, err := Seal(key, []byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, first[:NonceSize], second[:NonceSize])
	assert.NotEqual(t, first, second)
}

func TestGenerateSaltSize(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, salt, SaltSize)
}
