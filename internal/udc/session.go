package udc

import (
	"sync"
	"time"

	"github.com/ovrld/boardhal/internal/system"
)

// defaultSessionHistory bounds the connection log when no limit is
// configured.
const defaultSessionHistory = 127

// Event is one observed controller state change, stamped with
// milliseconds since boot.
type Event struct {
	State    State
	UptimeMs uint64
}

// SessionTracker keeps a bounded history of controller state changes.
// Consecutive observations of the same state collapse into one event,
// so polling faster than the bus changes costs nothing.
type SessionTracker struct {
	mu     sync.Mutex
	events []Event
	limit  int
	last   State
}

func NewSessionTracker(limit int) *SessionTracker {
	if limit <= 0 {
		limit = defaultSessionHistory
	}
	return &SessionTracker{limit: limit, last: StateUnknown}
}

// Observe records a state change, returning true when the state
// differs from the previous observation.
func (st *SessionTracker) Observe(s State) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s == st.last {
		return false
	}
	st.last = s

	ms, err := system.MillisSinceBoot(time.Now())
	if err != nil {
		ms = 0
	}
	st.events = append(st.events, Event{State: s, UptimeMs: ms})
	if len(st.events) > st.limit {
		st.events = st.events[len(st.events)-st.limit:]
	}
	return true
}

// Last returns the most recently observed state.
func (st *SessionTracker) Last() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.last
}

// Events returns the recorded history, oldest first.
func (st *SessionTracker) Events() []Event {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Event, len(st.events))
	copy(out, st.events)
	return out
}

// Reset drops the history and forgets the last state.
func (st *SessionTracker) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.events = nil
	st.last = StateUnknown
}
