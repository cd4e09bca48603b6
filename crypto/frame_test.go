package crypto

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key := DeriveKey("p@ss", salt)

	var buf bytes.Buffer
	chunks := [][]byte{
		[]byte("first"),
		bytes.Repeat([]byte{0x00}, 4096),
		[]byte("last"),
	}
	for _, chunk := range chunks {
		sealed, err := Seal(key, chunk)
		require.NoError(t, err)
		require.NoError(t, WriteFrame(&buf, sealed))
	}

	// Frames must be recoverable one at a time, in order, even though the
	// buffer holds them back to back.
	for _, want := range chunks {
		sealed, err := ReadFrame(&buf)
		require.NoError(t, err)
		got, err := Open(key, sealed)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameSize+1)
	buf.Write(prefix[:])

	_, err := ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReadFrameRejectsUndersizedLength(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], Overhead-1)
	buf.Write(prefix[:])
	buf.Write(make([]byte, Overhead-1))

	_, err := ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrSealedTooShort)
}

func TestReadFrameTruncatedBody(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	sealed, err := Seal(DeriveKey("p@ss", salt), []byte("truncate me"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, sealed))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])

	_, err = ReadFrame(truncated)
	assert.Error(t, err)
}
