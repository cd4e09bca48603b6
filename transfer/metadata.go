package transfer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Metadata is the self-describing header sent once per session, as a single
// JSON object terminated by a newline, before any sealed chunks.
type Metadata struct {
	TransferID     string `json:"transfer_id"`
	FileName       string `json:"file_name"`
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
	// Salt is the base64-encoded key derivation salt.
	Salt         string `json:"salt"`
	IsCompressed bool   `json:"is_compressed"`
	TransferCode string `json:"transfer_code"`
}

// Encode serializes the metadata with its newline terminator.
func (m Metadata) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeMetadata parses a metadata line (without the terminator).
func DecodeMetadata(line []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(line, &m); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

// SaltBytes decodes the base64 salt.
func (m Metadata) SaltBytes() ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(m.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	return salt, nil
}

// encodeSalt encodes a raw salt for the wire.
func encodeSalt(salt []byte) string {
	return base64.StdEncoding.EncodeToString(salt)
}
