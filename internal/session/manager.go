// Package session tracks per-browser view state on the server.
//
// Each session owns one view.State advanced through the view reducer.
// Sessions are cheap and anonymous: an ID in a cookie, a state record
// here, evicted after a couple of hours of inactivity. Losing one is
// harmless since the client transparently starts over from the default
// view.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kushankb/burdens-app/internal/view"
)

// DefaultTTL is how long an idle session survives before the janitor
// evicts it.
const DefaultTTL = 2 * time.Hour

type entry struct {
	state    view.State
	lastSeen time.Time
}

// Manager holds all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	bus      *Bus
	ttl      time.Duration
	logger   *slog.Logger
}

// NewManager creates a session manager publishing state changes on bus.
// A zero ttl means DefaultTTL.
func NewManager(bus *Bus, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		bus:      bus,
		ttl:      ttl,
		logger:   logger,
	}
}

// Create starts a new session with the default view state and returns
// its ID.
func (m *Manager) Create() (string, view.State) {
	id := uuid.NewString()
	state := view.DefaultState()

	m.mu.Lock()
	m.sessions[id] = &entry{state: state, lastSeen: time.Now()}
	m.mu.Unlock()

	m.logger.Debug("session created", "session", id)
	return id, state
}

// Get returns a session's state without refreshing its idle timer.
func (m *Manager) Get(id string) (view.State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return view.State{}, false
	}
	return e.state.Clone(), true
}

// GetOrCreate returns the session's state, seeding a fresh default
// state when the ID is unknown or was evicted.
func (m *Manager) GetOrCreate(id string) view.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		e = &entry{state: view.DefaultState()}
		m.sessions[id] = e
	}
	e.lastSeen = time.Now()
	return e.state.Clone()
}

// Apply runs one view action through the reducer for a session and
// publishes the resulting state. Unknown sessions are recreated from
// the default state first, so a stale cookie after an eviction still
// works.
func (m *Manager) Apply(id string, a view.Action) view.State {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		e = &entry{state: view.DefaultState()}
		m.sessions[id] = e
	}
	e.state = view.Apply(e.state, a)
	e.lastSeen = time.Now()
	state := e.state.Clone()
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(Event{Session: id, State: state})
	}
	return state
}

// Reset puts a session back to the default view state.
func (m *Manager) Reset(id string) view.State {
	m.mu.Lock()
	state := view.DefaultState()
	m.sessions[id] = &entry{state: state, lastSeen: time.Now()}
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(Event{Session: id, State: state.Clone()})
	}
	return state
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Run evicts idle sessions until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.evictIdle(now); n > 0 {
				m.logger.Info("evicted idle sessions", "count", n, "live", m.Len())
			}
		}
	}
}

// evictIdle removes sessions idle longer than the TTL and returns how
// many were dropped.
func (m *Manager) evictIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
