package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/viewgate-dev/viewgate/pkg/session"
)

// ErrTooManySessions is returned by Manager.Add when the session limit is
// reached.
var ErrTooManySessions = errors.New("gateway: session limit reached")

// Manager tracks the live sessions of one gateway.
type Manager struct {
	maxSessions int
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewManager creates a Manager. maxSessions of zero means unlimited.
func NewManager(maxSessions int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		maxSessions: maxSessions,
		logger:      logger.With("component", "manager"),
		sessions:    make(map[string]*session.Session),
	}
}

// Add registers a running session, enforcing the session limit.
func (m *Manager) Add(s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return ErrTooManySessions
	}
	m.sessions[s.ID] = s
	m.logger.Info("session added", "session_id", s.ID, "live", len(m.sessions))
	return nil
}

// Remove forgets a session. Unknown IDs are ignored.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.logger.Info("session removed", "session_id", id, "live", len(m.sessions))
	}
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Snapshot returns stats for every live session.
func (m *Manager) Snapshot() []session.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]session.Stats, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Stats())
	}
	return out
}

// Drain stops every live session and waits for their relay loops to finish
// teardown, or for ctx to expire.
func (m *Manager) Drain(ctx context.Context) error {
	m.mu.Lock()
	live := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.Stop()
	}
	for _, s := range live {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
