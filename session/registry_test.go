package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable Clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestIssueCodeFormat(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 100; i++ {
		code := r.IssueCode()
		assert.True(t, ValidCode(code), "issued code %q must be six ASCII digits", code)
	}
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "six_digits", code: "123456", want: true},
		{name: "leading_zeros", code: "000042", want: true},
		{name: "too_short", code: "12345", want: false},
		{name: "too_long", code: "1234567", want: false},
		{name: "letters", code: "12a456", want: false},
		{name: "empty", code: "", want: false},
		{name: "unicode_digit", code: "12345١", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCode(tt.code))
		})
	}
}

func TestRegisterLookup(t *testing.T) {
	r := NewRegistry()
	code := r.IssueCode()
	r.Register(code, "transfer-1")

	sess, err := r.Lookup(code)
	require.NoError(t, err)
	assert.Equal(t, code, sess.Code)
	assert.Equal(t, "transfer-1", sess.TransferID)
	assert.Equal(t, StatusWaiting, sess.Status)
}

func TestLookupUnknownCode(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupEvictsExpiredSession(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	r := NewRegistry()
	r.SetClock(clock)

	code := r.IssueCode()
	r.Register(code, "transfer-1")

	// Just inside the TTL the session is still live.
	clock.Advance(DefaultTTL)
	_, err := r.Lookup(code)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = r.Lookup(code)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.Len(), "expired entry must be evicted, not just hidden")
}

func TestMarkConnected(t *testing.T) {
	r := NewRegistry()
	code := r.IssueCode()
	r.Register(code, "transfer-1")

	require.NoError(t, r.MarkConnected(code))
	sess, err := r.Lookup(code)
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, sess.Status)

	assert.ErrorIs(t, r.MarkConnected("000000"), ErrNotFound)
}

func TestRelease(t *testing.T) {
	r := NewRegistry()
	code := r.IssueCode()
	r.Register(code, "transfer-1")

	r.Release(code)
	_, err := r.Lookup(code)
	assert.ErrorIs(t, err, ErrNotFound)

	// Releasing again is a no-op.
	r.Release(code)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	r := NewRegistry()
	r.SetClock(clock)

	old := r.IssueCode()
	r.Register(old, "old")

	clock.Advance(DefaultTTL + time.Second)

	fresh := r.IssueCode()
	r.Register(fresh, "fresh")

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	_, err := r.Lookup(fresh)
	assert.NoError(t, err)
}

func TestConcurrentRegistryAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				code := r.IssueCode()
				r.Register(code, "transfer")
				if _, err := r.Lookup(code); err != nil {
					t.Errorf("lookup of live code %q: %v", code, err)
					return
				}
				r.MarkConnected(code)
				r.Release(code)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
