// Package session tracks live rendezvous codes for the flux transfer
// protocol.
//
// A sender registers a freshly issued 6-digit code; the receiver looks the
// code up and marks the session connected once its listener is bound. Codes
// are single-use and expire 600 seconds after issuance. Expiry is lazy (an
// expired entry is evicted on lookup), with an optional periodic sweep for
// long-running processes.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CodeLength is the number of digits in a rendezvous code.
const CodeLength = 6

// DefaultTTL is how long a session stays valid after registration.
const DefaultTTL = 600 * time.Second

// ErrNotFound indicates an unknown or expired rendezvous code.
var ErrNotFound = errors.New("unknown or expired rendezvous code")

// Status represents the handshake state of a rendezvous session.
type Status uint8

const (
	// StatusWaiting indicates the sender is waiting for a receiver.
	StatusWaiting Status = iota
	// StatusConnected indicates the receiver has bound its listener.
	StatusConnected
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusConnected:
		return "connected"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Clock abstracts time lookup for deterministic expiry testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Session is the registry's record of a rendezvous code.
type Session struct {
	Code       string
	TransferID string
	Status     Status
	CreatedAt  time.Time

	// listener is the receiver's bound socket, closed on release so a
	// blocked accept wakes up when the session is torn down.
	listener net.Listener
}

// Registry is a process-wide directory of live rendezvous sessions. All
// methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	clock    Clock
	ttl      time.Duration
}

// NewRegistry creates an empty registry with the default session TTL.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		clock:    systemClock{},
		ttl:      DefaultTTL,
	}
}

// SetClock replaces the registry's time source. Intended for tests.
func (r *Registry) SetClock(c Clock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = c
}

// ValidCode reports whether code is syntactically a rendezvous code:
// exactly six ASCII digits.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// IssueCode generates a random 6-digit code not currently live.
func (r *Registry) IssueCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		code := randomCode()
		if _, live := r.sessions[code]; !live {
			return code
		}
	}
}

// Register records a new waiting session for code.
func (r *Registry) Register(code, transferID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[code] = &Session{
		Code:       code,
		TransferID: transferID,
		Status:     StatusWaiting,
		CreatedAt:  r.clock.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"code":        code,
		"transfer_id": transferID,
	}).Debug("rendezvous code registered")
}

// Lookup returns a snapshot of the session for code. An entry older than the
// TTL is evicted and reported as ErrNotFound.
func (r *Registry) Lookup(code string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[code]
	if !ok {
		return Session{}, ErrNotFound
	}
	if r.expired(sess) {
		delete(r.sessions, code)
		logrus.WithField("code", code).Debug("rendezvous code expired on lookup")
		return Session{}, ErrNotFound
	}
	return *sess, nil
}

// MarkConnected transitions the session for code to connected.
func (r *Registry) MarkConnected(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[code]
	if !ok || r.expired(sess) {
		delete(r.sessions, code)
		return ErrNotFound
	}
	sess.Status = StatusConnected
	return nil
}

// SetListener attaches the receiver's bound listener to the session so
// Release can close it.
func (r *Registry) SetListener(code string, l net.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[code]; ok {
		sess.listener = l
	}
}

// Release removes the session for code, closing any attached listener.
// Releasing an unknown code is a no-op.
func (r *Registry) Release(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evict(code)
}

// Len returns the number of live entries, counting not-yet-swept expired
// ones.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts every expired session and returns the number removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for code, sess := range r.sessions {
		if r.expired(sess) {
			r.evict(code)
			removed++
		}
	}
	if removed > 0 {
		logrus.WithField("removed", removed).Debug("swept expired rendezvous codes")
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled. It bounds
// memory growth from abandoned codes in long-running processes.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// evict removes code and closes its listener. Caller holds r.mu.
func (r *Registry) evict(code string) {
	sess, ok := r.sessions[code]
	if !ok {
		return
	}
	if sess.listener != nil {
		sess.listener.Close()
	}
	delete(r.sessions, code)
}

// expired reports whether sess has outlived the TTL. Caller holds r.mu.
func (r *Registry) expired(sess *Session) bool {
	return r.clock.Now().Sub(sess.CreatedAt) > r.ttl
}

func randomCode() string {
	upper := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		upper.Mul(upper, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken, at which point nothing in this process is safe.
		panic(fmt.Sprintf("session: entropy source unavailable: %v", err))
	}
	return fmt.Sprintf("%0*d", CodeLength, n)
}
