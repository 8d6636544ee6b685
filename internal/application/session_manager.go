package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reliancemove/service-quote/internal/common/domain"
	"go.uber.org/zap"
)

// SessionManager owns the live wizard sessions.
type SessionManager struct {
	deps   SessionDeps
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionManager creates a new SessionManager. Sessions idle for longer than
// ttl are closed by Sweep.
func NewSessionManager(deps SessionDeps, ttl time.Duration, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a new session.
func (m *SessionManager) Create() *Session {
	s := newSession(m.deps, m.now(), m.logger)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session_id", s.ID().String()))
	return s
}

// Get returns a live session and marks it as recently used.
func (m *SessionManager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError("Session", id.String())
	}
	s.touch(m.now())
	return s, nil
}

// Delete closes and removes a session.
func (m *SessionManager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.NewNotFoundError("Session", id.String())
	}
	s.Close()
	m.logger.Info("session closed", zap.String("session_id", id.String()))
	return nil
}

// FindByQuoteRef returns the live session holding quoteRef, if any.
func (m *SessionManager) FindByQuoteRef(quoteRef string) (*Session, bool) {
	if quoteRef == "" {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.Snapshot().QuoteRef == quoteRef {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle past the TTL and returns how many were removed.
func (m *SessionManager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.logger.Info("expired sessions swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll closes every live session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
