package chat

import (
	"sync"

	"github.com/zhouzirui/projecthub/backend/internal/logger"
)

// Conn is the write side of a live connection. Implementations must be
// safe for concurrent writes; the registry never reads from or closes it.
type Conn interface {
	WriteJSON(v any) error
}

// Session is one live chat connection bound to an authenticated identity.
// The same user may hold several concurrent sessions, each tracked
// independently.
type Session struct {
	conn     Conn
	UserID   string
	Username string
}

// Registry tracks live sessions and fans events out to all of them.
// Connect and Disconnect serialize on the mutex; Broadcast copies the
// membership under the lock and delivers outside it, so persistence or
// slow writes never block registration.
type Registry struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Session]struct{})}
}

// Connect registers a session; it becomes visible to subsequent broadcasts.
func (r *Registry) Connect(conn Conn, userID, username string) *Session {
	s := &Session{conn: conn, UserID: userID, Username: username}
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	r.mu.Unlock()
	return s
}

// Disconnect removes a session. Removing an unknown or already-removed
// session is a no-op; the return value reports whether it was present.
func (r *Registry) Disconnect(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s]; !ok {
		return false
	}
	delete(r.sessions, s)
	return true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast delivers event to every session registered at the moment the
// broadcast begins. Delivery is attempted per session; a failed write is
// swallowed — the transport observes the dead connection and disconnects
// the session itself, so the set is never mutated mid-iteration here.
func (r *Registry) Broadcast(event any) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		if err := s.conn.WriteJSON(event); err != nil {
			logger.Debug("[chat] broadcast write failed, session presumed gone: " + err.Error())
		}
	}
}
