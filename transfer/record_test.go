package transfer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCreateGet(t *testing.T) {
	l := NewLedger()
	l.Create(Record{ID: "a", FileName: "f.bin", Status: StatusWaiting})

	rec, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, "f.bin", rec.FileName)
	assert.Equal(t, StatusWaiting, rec.Status)

	_, ok = l.Get("missing")
	assert.False(t, ok)
}

func TestLedgerProgressMonotone(t *testing.T) {
	l := NewLedger()
	l.Create(Record{ID: "a"})

	l.SetProgress("a", 40)
	l.SetProgress("a", 25) // regressions are ignored
	rec, _ := l.Get("a")
	assert.Equal(t, 40, rec.Progress)

	l.SetProgress("a", 250) // clamped
	rec, _ = l.Get("a")
	assert.Equal(t, 100, rec.Progress)
}

func TestLedgerTerminalStatusSticky(t *testing.T) {
	l := NewLedger()
	l.Create(Record{ID: "a", Status: StatusSending})

	l.SetError("a", errors.New("boom"))
	rec, _ := l.Get("a")
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "boom", rec.Error)

	// Late status writes from a racing pipeline must not resurrect it.
	l.SetStatus("a", StatusSending)
	rec, _ = l.Get("a")
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "waiting", StatusWaiting.String())
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusReceiving.Terminal())
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name  string
		done  int64
		total int64
		want  int
	}{
		{name: "zero_total_is_complete", done: 0, total: 0, want: 100},
		{name: "start", done: 0, total: 1000, want: 0},
		{name: "floor", done: 999, total: 1000, want: 99},
		{name: "done", done: 1000, total: 1000, want: 100},
		{name: "overshoot_clamped", done: 1500, total: 1000, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, progressPercent(tt.done, tt.total))
		})
	}
}
