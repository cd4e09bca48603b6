package transfer

// EventType identifies what a pipeline is reporting.
type EventType uint8

const (
	// EventCodeIssued carries the freshly issued rendezvous code in
	// Event.Code. Emitted once per send.
	EventCodeIssued EventType = iota
	// EventStatus reports a pipeline state change.
	EventStatus
	// EventProgress reports a progress update in Event.Percent.
	EventProgress
	// EventCompleted reports successful completion.
	EventCompleted
	// EventFailed reports terminal failure; Event.Err holds the cause.
	EventFailed
	// EventCancelled reports user-initiated cancellation.
	EventCancelled
)

// String returns a human-readable event type name.
func (t EventType) String() string {
	switch t {
	case EventCodeIssued:
		return "code-issued"
	case EventStatus:
		return "status"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is one observation emitted by a transfer pipeline.
type Event struct {
	TransferID string
	Type       EventType
	// Percent is the transfer progress, 0 to 100.
	Percent int
	// Code is the rendezvous code, set only for EventCodeIssued.
	Code    string
	Message string
	// Err is the terminal failure cause, set only for EventFailed.
	Err error
}

// EventFunc receives pipeline events. It is invoked on the pipeline's own
// goroutine and must return quickly.
type EventFunc func(Event)

// wrapEmit makes a nil callback safe to invoke.
func wrapEmit(fn EventFunc) EventFunc {
	if fn == nil {
		return func(Event) {}
	}
	return fn
}
