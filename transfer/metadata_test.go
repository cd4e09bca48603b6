package transfer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flux-p2p/flux/crypto"
)

func TestMetadataRoundTrip(t *testing.T) {
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)

	in := Metadata{
		TransferID:     "0f6a2d1c",
		FileName:       "report.pdf",
		OriginalSize:   123456,
		CompressedSize: 65432,
		Salt:           encodeSalt(salt),
		IsCompressed:   true,
		TransferCode:   "042137",
	}

	line, err := in.Encode()
	require.NoError(t, err)
	require.True(t, bytes.HasSuffix(line, []byte("\n")), "metadata must be newline terminated")
	assert.Equal(t, 1, bytes.Count(line, []byte("\n")))

	out, err := DecodeMetadata(bytes.TrimSuffix(line, []byte("\n")))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	gotSalt, err := out.SaltBytes()
	require.NoError(t, err)
	assert.Equal(t, salt, gotSalt)
}

func TestDecodeMetadataRejectsGarbage(t *testing.T) {
	_, err := DecodeMetadata([]byte("not json at all"))
	assert.Error(t, err)
}

func TestSaltBytesRejectsBadEncoding(t *testing.T) {
	m := Metadata{Salt: "!!not-base64!!"}
	_, err := m.SaltBytes()
	assert.Error(t, err)
}
