package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flux-p2p/flux/compress"
	"github.com/flux-p2p/flux/crypto"
	"github.com/flux-p2p/flux/session"
)

// maxMetadataLine bounds the metadata header size a receiver will buffer.
const maxMetadataLine = 64 * 1024

// receiver drives one incoming transfer: bind the listener, accept the
// sender, read the metadata header, decrypt the chunk stream, and promote
// the result atomically into the destination directory.
type receiver struct {
	cfg      Config
	registry *session.Registry
	ledger   *Ledger
	emit     EventFunc

	id       string
	dir      string
	password string
	code     string

	// partPath and tmpPath are this pipeline's temporary files, removed
	// on every non-success exit.
	partPath string
	tmpPath  string
}

func (r *receiver) run(ctx context.Context) {
	r.finish(ctx, r.transfer(ctx))
}

func (r *receiver) transfer(ctx context.Context) error {
	ln, err := r.bind(ctx)
	if err != nil {
		return err
	}
	defer ln.Close()
	// Wake a blocked accept when the transfer is cancelled.
	stopLn := context.AfterFunc(ctx, func() { ln.Close() })
	defer stopLn()

	r.registry.SetListener(r.code, ln)
	if err := r.registry.MarkConnected(r.code); err != nil {
		return fmt.Errorf("%w: code %s expired before binding completed", ErrRendezvous, r.code)
	}
	r.emit(Event{TransferID: r.id, Type: EventStatus, Message: "waiting for sender to connect"})

	conn, err := r.accept(ctx, ln)
	if err != nil {
		return err
	}
	defer conn.Close()
	stopConn := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopConn()

	br := bufio.NewReader(conn)
	meta, key, err := r.handshake(conn, br)
	if err != nil {
		return err
	}
	if err := r.receive(ctx, conn, br, meta, key); err != nil {
		return err
	}
	return r.finalize(meta)
}

// bind listens on the well-known port with bounded retries.
func (r *receiver) bind(ctx context.Context) (net.Listener, error) {
	addr := net.JoinHostPort("", strconv.Itoa(r.cfg.Port))

	var lastErr error
	for attempt := 1; attempt <= r.cfg.BindAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: while binding", ErrCancelled)
		}

		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		lastErr = err

		logrus.WithFields(logrus.Fields{
			"transfer_id": r.id,
			"port":        r.cfg.Port,
			"attempt":     attempt,
			"error":       err.Error(),
		}).Warn("bind attempt failed")
		r.emit(Event{
			TransferID: r.id,
			Type:       EventStatus,
			Message:    fmt.Sprintf("bind attempt %d failed, retrying", attempt),
		})

		if attempt < r.cfg.BindAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: while binding", ErrCancelled)
			case <-time.After(r.cfg.BindBackoff):
			}
		}
	}
	return nil, fmt.Errorf("%w: bind port %d failed after %d attempts: %v",
		ErrNetwork, r.cfg.Port, r.cfg.BindAttempts, lastErr)
}

// accept waits for the sender's single inbound connection.
func (r *receiver) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	if tcp, ok := ln.(*net.TCPListener); ok {
		tcp.SetDeadline(time.Now().Add(r.cfg.AcceptTimeout))
	}

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: while accepting", ErrCancelled)
		}
		return nil, fmt.Errorf("%w: no sender connected within %s: %v",
			ErrNetwork, r.cfg.AcceptTimeout, err)
	}
	return conn, nil
}

// handshake reads and validates the metadata header and derives the session
// key from its salt.
func (r *receiver) handshake(conn net.Conn, br *bufio.Reader) (Metadata, crypto.Key, error) {
	conn.SetReadDeadline(time.Now().Add(r.cfg.MetadataTimeout))

	line, err := readLine(br)
	if err != nil {
		return Metadata{}, crypto.Key{}, fmt.Errorf("%w: read metadata: %v", ErrNetwork, err)
	}
	meta, err := DecodeMetadata(line)
	if err != nil {
		return Metadata{}, crypto.Key{}, fmt.Errorf("%w: malformed metadata: %v", ErrNetwork, err)
	}
	if meta.TransferCode != r.code {
		return Metadata{}, crypto.Key{}, fmt.Errorf("%w: peer offered code %s, session is %s",
			ErrRendezvous, meta.TransferCode, r.code)
	}

	name := filepath.Base(meta.FileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return Metadata{}, crypto.Key{}, fmt.Errorf("%w: unusable file name %q", ErrInput, meta.FileName)
	}
	meta.FileName = name

	salt, err := meta.SaltBytes()
	if err != nil {
		return Metadata{}, crypto.Key{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	r.ledger.SetFileName(r.id, name)
	r.ledger.SetSizes(r.id, meta.OriginalSize, meta.CompressedSize)

	logrus.WithFields(logrus.Fields{
		"transfer_id":     r.id,
		"file_name":       name,
		"original_size":   meta.OriginalSize,
		"compressed_size": meta.CompressedSize,
		"is_compressed":   meta.IsCompressed,
	}).Info("metadata received")

	return meta, crypto.DeriveKey(r.password, salt), nil
}

// receive decrypts sealed chunks into the partial file until the announced
// payload size has been recovered.
func (r *receiver) receive(ctx context.Context, conn net.Conn, br *bufio.Reader, meta Metadata, key crypto.Key) error {
	r.partPath = filepath.Join(r.dir, meta.FileName+".part")

	out, err := os.Create(r.partPath)
	if err != nil {
		return fmt.Errorf("%w: create partial file: %v", ErrInput, err)
	}
	defer out.Close()

	r.ledger.SetStatus(r.id, StatusReceiving)
	r.emit(Event{TransferID: r.id, Type: EventStatus, Message: "starting to receive file"})

	var received int64
	for received < meta.CompressedSize {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: during receive", ErrCancelled)
		}

		conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		sealed, err := crypto.ReadFrame(br)
		if err != nil {
			return fmt.Errorf("%w: read chunk: %v", ErrNetwork, err)
		}

		plain, err := crypto.Open(key, sealed)
		if err != nil {
			return fmt.Errorf("%w: %v (wrong password or tampered stream)", ErrCrypto, err)
		}

		if _, err := out.Write(plain); err != nil {
			return fmt.Errorf("write partial file: %w", err)
		}

		received += int64(len(plain))
		pct := progressPercent(received, meta.CompressedSize)
		r.ledger.SetProgress(r.id, pct)
		r.emit(Event{
			TransferID: r.id,
			Type:       EventProgress,
			Percent:    pct,
			Message:    fmt.Sprintf("receiving: %d%%", pct),
		})
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close partial file: %w", err)
	}
	return nil
}

// finalize promotes the partial file into place. The rename is atomic, so no
// external observer ever sees a half-written destination file.
func (r *receiver) finalize(meta Metadata) error {
	final := filepath.Join(r.dir, meta.FileName)

	if meta.IsCompressed {
		r.emit(Event{TransferID: r.id, Type: EventStatus, Percent: 100, Message: "decompressing file"})
		r.tmpPath = final + ".tmp"
		if err := compress.UnFile(r.partPath, r.tmpPath); err != nil {
			return fmt.Errorf("%w: %v", ErrCompression, err)
		}
		if err := os.Rename(r.tmpPath, final); err != nil {
			return fmt.Errorf("finalize file: %w", err)
		}
		os.Remove(r.partPath)
	} else {
		if err := os.Rename(r.partPath, final); err != nil {
			return fmt.Errorf("finalize file: %w", err)
		}
	}

	r.ledger.SetFilePath(r.id, final)
	return nil
}

// finish records the terminal state and cleans up on every exit path:
// temporary files are removed and the rendezvous code released no matter how
// the pipeline ended.
func (r *receiver) finish(ctx context.Context, err error) {
	r.registry.Release(r.code)

	switch {
	case err == nil:
		r.ledger.SetProgress(r.id, 100)
		r.ledger.SetStatus(r.id, StatusCompleted)
		rec, _ := r.ledger.Get(r.id)
		logrus.WithFields(logrus.Fields{
			"transfer_id": r.id,
			"file_path":   rec.FilePath,
		}).Info("receive completed")
		r.emit(Event{TransferID: r.id, Type: EventCompleted, Percent: 100, Message: "file received successfully"})

	case errors.Is(err, ErrCancelled) || ctx.Err() != nil:
		r.removeTemps()
		r.ledger.SetStatus(r.id, StatusCancelled)
		logrus.WithField("transfer_id", r.id).Info("receive cancelled")
		r.emit(Event{TransferID: r.id, Type: EventCancelled, Message: "transfer cancelled"})

	default:
		r.removeTemps()
		r.ledger.SetError(r.id, err)
		logrus.WithFields(logrus.Fields{
			"transfer_id": r.id,
			"error":       err.Error(),
		}).Error("receive failed")
		r.emit(Event{TransferID: r.id, Type: EventFailed, Message: err.Error(), Err: err})
	}
}

func (r *receiver) removeTemps() {
	if r.partPath != "" {
		os.Remove(r.partPath)
	}
	if r.tmpPath != "" {
		os.Remove(r.tmpPath)
	}
}

// readLine reads bytes up to a newline terminator, bounding how much it will
// buffer.
func readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == '\n' {
			return line, nil
		}
		line = append(line, b)
		if len(line) > maxMetadataLine {
			return nil, errors.New("metadata line too long")
		}
	}
}
