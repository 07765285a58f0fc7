// internal/backend/registry.go
package backend

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore tracks the open friend GUI per viewer on this backend
// instance.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers a viewer's session, closing any session it replaces.
func (st *SessionStore) Add(viewer uuid.UUID, s *Session) {
	st.mu.Lock()
	old, exists := st.sessions[viewer]
	st.sessions[viewer] = s
	st.mu.Unlock()

	if exists && old != s {
		old.Close()
	}
}

// Get returns the viewer's open session, if any.
func (st *SessionStore) Get(viewer uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[viewer]
	return s, ok
}

// Delete removes a session's entry if the registry still points at it.
// Called from a session's onClose, so a replacement registered meanwhile
// survives.
func (st *SessionStore) Delete(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if current, ok := st.sessions[s.Viewer()]; ok && current == s {
		delete(st.sessions, s.Viewer())
	}
}
