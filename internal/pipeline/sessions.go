package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sessions maps session ids to independent coordinators. Each browser tab or
// CLI invocation owns one session; sessions never share records.
type Sessions struct {
	factory func() *Coordinator

	mu       sync.RWMutex
	sessions map[string]*Coordinator
}

// NewSessions creates an empty registry. factory builds the coordinator for
// each new session.
func NewSessions(factory func() *Coordinator) *Sessions {
	return &Sessions{
		factory:  factory,
		sessions: make(map[string]*Coordinator),
	}
}

// Create starts a new session and returns its id.
func (s *Sessions) Create() (string, *Coordinator) {
	id := uuid.New().String()
	c := s.factory()

	s.mu.Lock()
	s.sessions[id] = c
	s.mu.Unlock()

	zap.L().Debug("pipeline: session created", zap.String("session_id", id))
	return id, c
}

// Get returns the coordinator for id.
func (s *Sessions) Get(id string) (*Coordinator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	return c, ok
}

// Delete drops a session. It reports whether the session existed.
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than idle as of now. Sessions with an
// estimate in flight are kept. It returns the number removed.
func (s *Sessions) Sweep(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.sessions {
		if c.Submitting() || now.Sub(c.LastActive()) < idle {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	if removed > 0 {
		zap.L().Info("pipeline: swept idle sessions", zap.Int("removed", removed), zap.Int("remaining", len(s.sessions)))
	}
	return removed
}
