// Package focus implements the focus session engine: one live countdown timer
// per authenticated user, driven by a per-session ticker and pushed to the
// owning client over a websocket.
package focus

// State is the lifecycle state of a live session. Completed and stopped are
// terminal events, not states: the session is removed from the store by the
// same operation that produces them, so they are never observable here.
type State string

const (
	// StateRunning means the session ticker is advancing elapsed time.
	StateRunning State = "running"
	// StatePaused means elapsed time is frozen and no ticker exists.
	StatePaused State = "paused"
)

// Session is the live timer record for one owner. All fields are guarded by
// the store's per-owner serialization; nothing outside this package mutates
// them.
type Session struct {
	Owner   string
	Target  int // seconds, fixed at creation
	Elapsed int // monotonically non-decreasing while running
	State   State

	// ticker is present iff State == StateRunning. gen identifies the
	// ticker generation so late callbacks from a replaced ticker are
	// rejected instead of double-incrementing elapsed.
	ticker *Ticker
	gen    uint64
}

// Snapshot is a read-only copy of a session's observable fields.
type Snapshot struct {
	Owner   string `json:"owner"`
	Target  int    `json:"duration"`
	Elapsed int    `json:"elapsed"`
	State   State  `json:"state"`
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Owner:   s.Owner,
		Target:  s.Target,
		Elapsed: s.Elapsed,
		State:   s.State,
	}
}

// EventType enumerates outbound notifications.
type EventType string

const (
	EventStarted   EventType = "started"
	EventTick      EventType = "tick"
	EventPaused    EventType = "paused"
	EventResumed   EventType = "resumed"
	EventStopped   EventType = "stopped"
	EventCompleted EventType = "completed"
)

// Event is a state-change notification pushed to the session owner.
// Delivery is best-effort; an event for an owner without a connection is
// dropped.
type Event struct {
	Type      EventType `json:"type"`
	Duration  int       `json:"duration,omitempty"`
	Elapsed   int       `json:"elapsed"`
	Remaining int       `json:"remaining,omitempty"`
}

// Notifier receives outbound events. Implementations must not block: a slow
// client must never stall another owner's ticker.
type Notifier interface {
	Notify(owner string, evt Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, Event) {}
