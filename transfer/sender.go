package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
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

// sender drives one outgoing transfer: prepare the payload, wait for the
// receiver to attach, connect, and stream sealed chunks.
type sender struct {
	cfg      Config
	registry *session.Registry
	ledger   *Ledger
	emit     EventFunc

	id       string
	path     string
	password string
	size     int64

	code string
	// artifact is the compressed temporary file, empty for pass-through.
	artifact       string
	payload        string
	compressedSize int64
	key            crypto.Key
	meta           Metadata
}

func (s *sender) run(ctx context.Context) {
	s.finish(ctx, s.transfer(ctx))
}

func (s *sender) transfer(ctx context.Context) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	if err := s.waitForPeer(ctx); err != nil {
		return err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return s.stream(ctx, conn)
}

// prepare compresses the payload when it crosses the threshold, derives the
// session key, and registers a rendezvous code.
func (s *sender) prepare(ctx context.Context) error {
	if s.size > s.cfg.CompressionThreshold {
		artifact, err := compress.File(s.path)
		if err != nil {
			return fmt.Errorf("%w: compress %q: %v", ErrCompression, s.path, err)
		}
		info, err := os.Stat(artifact)
		if err != nil {
			os.Remove(artifact)
			return fmt.Errorf("%w: stat artifact: %v", ErrCompression, err)
		}
		s.artifact = artifact
		s.payload = artifact
		s.compressedSize = info.Size()
	} else {
		s.payload = s.path
		s.compressedSize = s.size
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: during preparation", ErrCancelled)
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	s.key = crypto.DeriveKey(s.password, salt)

	s.code = s.registry.IssueCode()
	s.registry.Register(s.code, s.id)

	s.meta = Metadata{
		TransferID:     s.id,
		FileName:       filepath.Base(s.path),
		OriginalSize:   s.size,
		CompressedSize: s.compressedSize,
		Salt:           encodeSalt(salt),
		IsCompressed:   s.artifact != "",
		TransferCode:   s.code,
	}

	s.ledger.SetCode(s.id, s.code)
	s.ledger.SetSizes(s.id, s.size, s.compressedSize)

	logrus.WithFields(logrus.Fields{
		"transfer_id":     s.id,
		"code":            s.code,
		"original_size":   s.size,
		"compressed_size": s.compressedSize,
		"is_compressed":   s.meta.IsCompressed,
	}).Info("transfer prepared, waiting for receiver")

	s.emit(Event{
		TransferID: s.id,
		Type:       EventCodeIssued,
		Code:       s.code,
		Message:    fmt.Sprintf("waiting for receiver, transfer code %s", s.code),
	})
	return nil
}

// waitForPeer polls the registry until the receiver marks the session
// connected.
func (s *sender) waitForPeer(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.WaitTimeout)
	for {
		sess, err := s.registry.Lookup(s.code)
		if err != nil {
			return fmt.Errorf("%w: code %s vanished while waiting", ErrRendezvous, s.code)
		}
		if sess.Status == session.StatusConnected {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no receiver attached within %s", ErrNetwork, s.cfg.WaitTimeout)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: while waiting for receiver", ErrCancelled)
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// connect dials the receiver's listener with bounded retries.
func (s *sender) connect(ctx context.Context) (net.Conn, error) {
	s.ledger.SetStatus(s.id, StatusConnecting)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var lastErr error
	for attempt := 1; attempt <= s.cfg.DialAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: while connecting", ErrCancelled)
		}

		conn, err := net.DialTimeout("tcp", addr, s.cfg.DialTimeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		logrus.WithFields(logrus.Fields{
			"transfer_id": s.id,
			"address":     addr,
			"attempt":     attempt,
			"error":       err.Error(),
		}).Warn("connect attempt failed")
		s.emit(Event{
			TransferID: s.id,
			Type:       EventStatus,
			Message:    fmt.Sprintf("connection attempt %d failed, retrying", attempt),
		})

		if attempt < s.cfg.DialAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: while connecting", ErrCancelled)
			case <-time.After(s.cfg.DialBackoff):
			}
		}
	}
	return nil, fmt.Errorf("%w: connect to %s failed after %d attempts: %v",
		ErrNetwork, addr, s.cfg.DialAttempts, lastErr)
}

// stream writes the metadata line, then the payload as sealed, length-
// prefixed chunks.
func (s *sender) stream(ctx context.Context, conn net.Conn) error {
	header, err := s.meta.Encode()
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("%w: write metadata: %v", ErrNetwork, err)
	}

	s.ledger.SetStatus(s.id, StatusSending)
	s.emit(Event{TransferID: s.id, Type: EventStatus, Message: "starting transfer"})

	f, err := os.Open(s.payload)
	if err != nil {
		return fmt.Errorf("%w: open payload: %v", ErrInput, err)
	}
	defer f.Close()

	buf := make([]byte, s.cfg.ChunkSize)
	var sent int64
	for {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: during send", ErrCancelled)
		}

		n, readErr := f.Read(buf)
		if n > 0 {
			sealed, err := crypto.Seal(s.key, buf[:n])
			if err != nil {
				return fmt.Errorf("seal chunk: %w", err)
			}
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := crypto.WriteFrame(conn, sealed); err != nil {
				return fmt.Errorf("%w: write chunk: %v", ErrNetwork, err)
			}

			sent += int64(n)
			pct := progressPercent(sent, s.compressedSize)
			s.ledger.SetProgress(s.id, pct)
			s.emit(Event{
				TransferID: s.id,
				Type:       EventProgress,
				Percent:    pct,
				Message:    fmt.Sprintf("sending: %d%%", pct),
			})
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read payload: %w", readErr)
		}
	}
}

// finish records the terminal state and cleans up on every exit path: the
// compressed artifact is deleted and the rendezvous code released no matter
// how the pipeline ended.
func (s *sender) finish(ctx context.Context, err error) {
	if s.artifact != "" {
		os.Remove(s.artifact)
	}
	if s.code != "" {
		s.registry.Release(s.code)
	}

	switch {
	case err == nil:
		s.ledger.SetProgress(s.id, 100)
		s.ledger.SetStatus(s.id, StatusCompleted)
		logrus.WithFields(logrus.Fields{
			"transfer_id": s.id,
			"file_name":   s.meta.FileName,
		}).Info("send completed")
		s.emit(Event{TransferID: s.id, Type: EventCompleted, Percent: 100, Message: "transfer completed"})

	case errors.Is(err, ErrCancelled) || ctx.Err() != nil:
		s.ledger.SetStatus(s.id, StatusCancelled)
		logrus.WithField("transfer_id", s.id).Info("send cancelled")
		s.emit(Event{TransferID: s.id, Type: EventCancelled, Message: "transfer cancelled"})

	default:
		s.ledger.SetError(s.id, err)
		logrus.WithFields(logrus.Fields{
			"transfer_id": s.id,
			"error":       err.Error(),
		}).Error("send failed")
		s.emit(Event{TransferID: s.id, Type: EventFailed, Message: err.Error(), Err: err})
	}
}
