package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WessleyAI/carviewer/engine/upstream"
)

// Manager hands out sessions keyed by UUID and expires idle ones.
type Manager struct {
	src  upstream.Source
	opts Options
	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions read from src. Sessions unused
// for longer than idle are dropped by Sweep.
func NewManager(src upstream.Source, idle time.Duration, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		src:      src,
		opts:     opts,
		idle:     idle,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Create starts a new empty session.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.src, m.opts)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.setGauge(n)
	return s
}

// Get returns the session for id and marks it used.
func (m *Manager) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	return m.Create(), true
}

// Delete drops a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	m.setGauge(n)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout and returns
// how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idle)
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if removed > 0 {
		m.opts.Logger.Info("expired idle sessions", "removed", removed, "active", n)
	}
	m.setGauge(n)
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// RefreshAll reloads every loaded session, e.g. after the catalog changed
// upstream. Failures are logged; each session keeps its previous data.
func (m *Manager) RefreshAll(ctx context.Context) int {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	refreshed := 0
	for _, s := range all {
		if !s.Store().Loaded() {
			continue
		}
		if err := s.Refresh(ctx); err != nil {
			m.opts.Logger.Warn("session refresh failed", "session", s.ID(), "err", err)
			continue
		}
		refreshed++
	}
	return refreshed
}

func (m *Manager) setGauge(n int) {
	if m.opts.Metrics != nil {
		m.opts.Metrics.ActiveSessions.Set(float64(n))
	}
}
