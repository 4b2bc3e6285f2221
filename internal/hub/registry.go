package hub

import (
	"sync"
	"time"
)

// Session is the hub-side record attached to a live connection.
type Session struct {
	Authenticated bool
	Room          string
	Token         string
	ConnectedAt   time.Time
}

type sessionEntry struct {
	conn    *Conn
	session Session
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[*Conn]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Conn]*Session)}
}

func (r *Registry) Register(c *Conn, now time.Time) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[c]; ok {
		return Session{}, ErrAlreadyRegistered
	}
	s := &Session{ConnectedAt: now}
	r.sessions[c] = s
	return *s, nil
}

func (r *Registry) MarkAuthenticated(c *Conn, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return ErrSessionNotFound
	}
	s.Authenticated = true
	s.Token = token
	return nil
}

func (r *Registry) Get(c *Conn) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[c]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Remove detaches the session. The caller must also drop the connection
// from the room index.
func (r *Registry) Remove(c *Conn) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, c)
	return *s, true
}

func (r *Registry) setRoom(c *Conn, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return false
	}
	s.Room = room
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) conns() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0, len(r.sessions))
	for c := range r.sessions {
		out = append(out, c)
	}
	return out
}

func (r *Registry) snapshot() []sessionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]sessionEntry, 0, len(r.sessions))
	for c, s := range r.sessions {
		out = append(out, sessionEntry{conn: c, session: *s})
	}
	return out
}
