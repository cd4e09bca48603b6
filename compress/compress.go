// Package compress provides the streaming zstd codec used to shrink large
// files before they are encrypted and sent.
//
// Only files larger than Threshold are compressed; smaller files travel
// unchanged with the wire metadata's is_compressed flag cleared, since the
// codec overhead outweighs the savings at that size.
package compress

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Threshold is the source file size in bytes above which compression is
// applied.
const Threshold = 10 * 1024 * 1024

// ArtifactSuffix is appended to a source path to name its compressed
// temporary artifact.
const ArtifactSuffix = ".zst"

// ErrCorruptStream indicates that a compressed stream could not be decoded.
var ErrCorruptStream = errors.New("corrupt compressed stream")

// ShouldCompress reports whether a file of the given size crosses the
// compression threshold.
func ShouldCompress(size int64) bool {
	return size > Threshold
}

// Stream compresses everything read from r onto w at the codec's default
// (moderate) level.
func Stream(w io.Writer, r io.Reader) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	if _, err := io.Copy(enc, r); err != nil {
		enc.Close()
		return fmt.Errorf("compress stream: %w", err)
	}
	return enc.Close()
}

// Unstream decompresses everything read from r onto w. A decode failure is
// reported as ErrCorruptStream.
func Unstream(w io.Writer, r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	defer dec.Close()

	if _, err := io.Copy(w, dec); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	return nil
}

// File compresses src into a sibling artifact named src+ArtifactSuffix and
// returns the artifact path. The caller owns the artifact and must remove it.
func File(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := src + ArtifactSuffix
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	if err := Stream(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

// UnFile decompresses the artifact at src into dst.
func UnFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if err := Unstream(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
