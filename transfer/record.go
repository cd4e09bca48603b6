package transfer

import (
	"fmt"
	"sync"
	"time"
)

// Status represents the lifecycle state of a transfer record.
type Status uint8

const (
	// StatusWaiting indicates a sender waiting for its receiver to attach.
	StatusWaiting Status = iota
	// StatusConnecting indicates a receiver binding its listener or a
	// sender dialing it.
	StatusConnecting
	// StatusSending indicates chunks are flowing out.
	StatusSending
	// StatusReceiving indicates chunks are flowing in.
	StatusReceiving
	// StatusCompleted indicates the transfer finished successfully.
	StatusCompleted
	// StatusFailed indicates the transfer failed; Record.Error is set.
	StatusFailed
	// StatusCancelled indicates the user cancelled the transfer.
	StatusCancelled
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusConnecting:
		return "connecting"
	case StatusSending:
		return "sending"
	case StatusReceiving:
		return "receiving"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Terminal reports whether s is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Record is the ledger's view of one transfer, kept for observability.
type Record struct {
	ID             string
	FileName       string
	Code           string
	OriginalSize   int64
	CompressedSize int64
	// Progress is a monotonically non-decreasing percentage, 0 to 100.
	Progress int
	Status   Status
	// Error is set only when Status is StatusFailed.
	Error string
	// FilePath is the final destination path, set on a completed receive.
	FilePath  string
	StartedAt time.Time
}

// Ledger is a process-wide table of transfer records. All methods are safe
// for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]*Record)}
}

// Create inserts a record. An existing record with the same ID is replaced.
func (l *Ledger) Create(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := rec
	l.records[rec.ID] = &stored
}

// Get returns a snapshot of the record for id.
func (l *Ledger) Get(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// SetStatus updates the record's status. Terminal states are sticky: once a
// record is completed, failed, or cancelled its status no longer changes.
func (l *Ledger) SetStatus(id string, s Status) {
	l.update(id, func(rec *Record) {
		if rec.Status.Terminal() {
			return
		}
		rec.Status = s
	})
}

// SetProgress raises the record's progress. Values below the current
// progress or outside 0..100 are clamped, keeping progress monotone.
func (l *Ledger) SetProgress(id string, pct int) {
	l.update(id, func(rec *Record) {
		if pct > 100 {
			pct = 100
		}
		if pct > rec.Progress {
			rec.Progress = pct
		}
	})
}

// SetSizes records the original and compressed payload sizes.
func (l *Ledger) SetSizes(id string, original, compressed int64) {
	l.update(id, func(rec *Record) {
		rec.OriginalSize = original
		rec.CompressedSize = compressed
	})
}

// SetFileName records the transferred file's name.
func (l *Ledger) SetFileName(id, name string) {
	l.update(id, func(rec *Record) { rec.FileName = name })
}

// SetCode records the rendezvous code associated with the transfer.
func (l *Ledger) SetCode(id, code string) {
	l.update(id, func(rec *Record) { rec.Code = code })
}

// SetFilePath records the final destination path of a received file.
func (l *Ledger) SetFilePath(id, path string) {
	l.update(id, func(rec *Record) { rec.FilePath = path })
}

// SetError marks the record failed with the given cause.
func (l *Ledger) SetError(id string, err error) {
	l.update(id, func(rec *Record) {
		if rec.Status.Terminal() {
			return
		}
		rec.Status = StatusFailed
		rec.Error = err.Error()
	})
}

func (l *Ledger) update(id string, fn func(*Record)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[id]; ok {
		fn(rec)
	}
}

// progressPercent computes floor(done/total*100), treating an empty payload
// as complete.
func progressPercent(done, total int64) int {
	if total <= 0 {
		return 100
	}
	pct := int(done * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}
