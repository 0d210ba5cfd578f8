package session

import (
	"golang.org/x/sys/unix"

	"github.com/mygpiod/mygpiod/internal/gpio"
)

// Manager owns the full set of live sessions, enforcing spec §4.F's
// MAX_CLIENTS bound ("if MAX_CLIENTS would be exceeded, closes the new
// descriptor immediately").
type Manager struct {
	nextID   int
	sessions map[int]*Session // keyed by Session.ID
}

// NewManager builds an empty session Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int]*Session)}
}

// Count is the number of currently live sessions.
func (m *Manager) Count() int { return len(m.sessions) }

// Accept wraps a freshly-accepted descriptor in a Session, or closes it
// immediately if MAX_CLIENTS is already reached.
func (m *Manager) Accept(fd int, welcome []byte) *Session {
	if len(m.sessions) >= gpio.MaxClients {
		unix.Close(fd)
		return nil
	}
	m.nextID++
	s := New(m.nextID, fd, welcome)
	m.sessions[s.ID] = s
	return s
}

// Remove drops a session from the set. The caller must already have torn
// down its socket, timeout descriptor and bus subscription.
func (m *Manager) Remove(id int) {
	delete(m.sessions, id)
}

// All returns every live session, for poll-set rebuilding.
func (m *Manager) All() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Get looks up a session by ID.
func (m *Manager) Get(id int) (*Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}
