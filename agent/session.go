package agent

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Session scopes a single agent invocation. It retains the event history
// for the fallback lookup and is closed deterministically by the runner
// when the invocation returns, success or failure. Sessions are never
// reused across invocations.
type Session struct {
	// ID uniquely identifies this invocation.
	ID string

	// AgentName is the invoked agent.
	AgentName string

	mu      sync.Mutex
	history []Event
	closed  bool
}

// NewSession creates a fresh session for one agent invocation.
func NewSession(agentName string) *Session {
	return &Session{
		ID:        "s-" + uuid.New().String()[:8],
		AgentName: agentName,
	}
}

// Record appends an event to the session history. Records after Close are
// dropped.
func (s *Session) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.history = append(s.history, ev)
}

// History returns a copy of the recorded events.
func (s *Session) History() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.history))
	copy(out, s.history)
	return out
}

// LastText returns the most recent non-empty text fragment in the history,
// or empty if none was recorded. Used as a last-resort lookup when the
// event stream ended without a text event.
func (s *Session) LastText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Type == EventText && strings.TrimSpace(s.history[i].Text) != "" {
			return s.history[i].Text
		}
	}
	return ""
}

// Close releases the session. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether the session has been released.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
