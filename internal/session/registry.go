package session

import (
	"context"
	"sync"

	"github.com/babelroom/babelroom/internal/observe"
)

// Registry is the process-wide session map. Streams register on init and
// deregister on teardown; unary settings RPCs fan updates out to every
// session in the room.
type Registry struct {
	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry(metrics *observe.Metrics) *Registry {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Registry{metrics: metrics, sessions: make(map[string]*Session)}
}

// Add registers s. A session id collision replaces the previous entry; the
// transport guarantees one live stream per id, so a collision means a stale
// entry from an unclean disconnect.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	_, replaced := r.sessions[s.ID]
	r.sessions[s.ID] = s
	r.mu.Unlock()
	if !replaced {
		r.metrics.ActiveSessions.Add(context.Background(), 1)
	}
}

// Remove deregisters the session by id and returns it, or nil when absent.
func (r *Registry) Remove(id string) *Session {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		r.metrics.ActiveSessions.Add(context.Background(), -1)
		return s
	}
	return nil
}

// Get returns the session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// RoomCount returns the number of live sessions in room.
func (r *Registry) RoomCount(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.Room == room {
			n++
		}
	}
	return n
}

// Len returns the total number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// UpdateParticipantSettings applies a settings change to every session in
// room and reports whether any session was updated. Updates take effect from
// each session's next utterance.
func (r *Registry) UpdateParticipantSettings(room, participantID, targetLang string, enabled bool) bool {
	r.mu.Lock()
	var matched []*Session
	for _, s := range r.sessions {
		if s.Room == room {
			matched = append(matched, s)
		}
	}
	r.mu.Unlock()

	for _, s := range matched {
		s.UpdateParticipant(participantID, targetLang, enabled)
	}
	return len(matched) > 0
}
