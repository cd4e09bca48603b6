package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds the sealed length a reader will accept, preventing
// memory exhaustion from a corrupt or hostile length prefix.
const MaxFrameSize = 1 << 20

// ErrFrameTooLarge indicates a frame whose length prefix exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum allowed size")

// WriteFrame writes a sealed chunk to w prefixed with its 4-byte big-endian
// length.
func WriteFrame(w io.Writer, sealed []byte) error {
	if len(sealed) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(sealed)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(sealed); err != nil {
		return fmt.Errorf("write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed sealed chunk from r. It returns the
// sealed bytes without the prefix.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if length < Overhead {
		return nil, ErrSealedTooShort
	}

	sealed := make([]byte, length)
	if _, err := io.ReadFull(r, sealed); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return sealed, nil
}
