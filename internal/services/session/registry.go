package session

import (
	"sync"

	"moviestream/internal/domain"
)

// Registry is the in-memory session table. It only maps ids to sessions;
// per-session state is guarded by each session's own lock so registry
// operations never block on a slow session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.SessionID]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Get(id domain.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unlinks the session and returns it so the caller can finish
// teardown. The second return is false if the id was already gone, which
// makes concurrent stops idempotent: only one caller wins the removal.
func (r *Registry) Remove(id domain.SessionID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
