package transfer

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/flux-p2p/flux/session"
)

// Engine coordinates transfer pipelines over a shared session registry and
// transfer ledger. Multiple engines are independent; nothing is process
// global.
type Engine struct {
	cfg      Config
	registry *session.Registry
	ledger   *Ledger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine creates an engine with its own registry and ledger.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		registry: session.NewRegistry(),
		ledger:   NewLedger(),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Registry exposes the engine's session registry, for rendezvous sweeping
// and inspection.
func (e *Engine) Registry() *session.Registry {
	return e.registry
}

// Send starts a background pipeline that offers the file at path to a peer.
// It returns the transfer id immediately; the issued rendezvous code,
// progress, and the terminal outcome arrive through fn. An unreadable source
// file is reported synchronously as ErrInput.
func (e *Engine) Send(path, password string, fn EventFunc) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: source file %q: %v", ErrInput, path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %q is a directory", ErrInput, path)
	}

	id := uuid.NewString()
	e.ledger.Create(Record{
		ID:           id,
		FileName:     filepath.Base(path),
		OriginalSize: info.Size(),
		Status:       StatusWaiting,
		StartedAt:    time.Now(),
	})

	s := &sender{
		cfg:      e.cfg,
		registry: e.registry,
		ledger:   e.ledger,
		emit:     wrapEmit(fn),
		id:       id,
		path:     path,
		password: password,
		size:     info.Size(),
	}

	logrus.WithFields(logrus.Fields{
		"transfer_id": id,
		"file_name":   info.Name(),
		"file_size":   info.Size(),
	}).Info("send pipeline submitted")

	e.spawn(id, s.run)
	return id, nil
}

// ReceiverHandle refers to a running receive pipeline.
type ReceiverHandle struct {
	// TransferID identifies the receive in the ledger and event stream.
	TransferID string

	engine *Engine
}

// Close cancels the receive if it is still running.
func (h *ReceiverHandle) Close() {
	h.engine.Cancel(h.TransferID)
}

// Receive starts a background pipeline that accepts the transfer identified
// by code and writes the file into dir, creating it if needed. Malformed
// codes are rejected synchronously as ErrInput, unknown or expired ones as
// ErrRendezvous; everything later arrives through fn.
func (e *Engine) Receive(dir, password, code string, fn EventFunc) (*ReceiverHandle, error) {
	if !session.ValidCode(code) {
		return nil, fmt.Errorf("%w: malformed transfer code %q", ErrInput, code)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: save directory %q: %v", ErrInput, dir, err)
	}
	if _, err := e.registry.Lookup(code); err != nil {
		return nil, fmt.Errorf("%w: code %s: %v", ErrRendezvous, code, err)
	}

	id := uuid.NewString()
	e.ledger.Create(Record{
		ID:        id,
		Code:      code,
		Status:    StatusConnecting,
		StartedAt: time.Now(),
	})

	r := &receiver{
		cfg:      e.cfg,
		registry: e.registry,
		ledger:   e.ledger,
		emit:     wrapEmit(fn),
		id:       id,
		dir:      dir,
		password: password,
		code:     code,
	}

	logrus.WithFields(logrus.Fields{
		"transfer_id": id,
		"code":        code,
		"save_dir":    dir,
	}).Info("receive pipeline submitted")

	e.spawn(id, r.run)
	return &ReceiverHandle{TransferID: id, engine: e}, nil
}

// Cancel requests cooperative cancellation of the transfer. It reports
// whether a running pipeline was found; the pipeline observes the request at
// its next wait tick or chunk boundary.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()

	if ok {
		logrus.WithField("transfer_id", id).Info("cancellation requested")
		cancel()
	}
	return ok
}

// Status returns a snapshot of the transfer record for id.
func (e *Engine) Status(id string) (Record, bool) {
	return e.ledger.Get(id)
}

// Close cancels every running pipeline and waits for all workers to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// spawn runs a pipeline on its own goroutine under a cancellable context.
func (e *Engine) spawn(id string, run func(context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.cancels[id] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.cancels, id)
			e.mu.Unlock()
			cancel()
		}()
		run(ctx)
	}()
}

// LocalIP returns this machine's outbound IPv4 address, which peers on the
// same network dial to reach a receiver here. Falls back to loopback when no
// route is available.
func LocalIP() string {
	conn, err := net.Dial("udp", "1.1.1.1:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
