package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/platemarket/plugin/hook"
	"github.com/kasuganosora/platemarket/scheduler"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for an unknown or expired session id.
var ErrSessionNotFound = errors.New("session not found")

// gcOwner owns the idle-session sweep in the scheduler.
const gcOwner = "manager"

// Manager maintains the registry of live games.
type Manager struct {
	mu       sync.RWMutex
	games    map[string]*Game
	cfg      Config
	ttl      time.Duration
	sched    *scheduler.Scheduler
	notifier Notifier
	hooks    *hook.HookCenter
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a Manager. Games idle for longer than ttl are closed
// by StartGC.
func NewManager(cfg Config, ttl time.Duration, sched *scheduler.Scheduler, notifier Notifier, hooks *hook.HookCenter, logger *zap.Logger) *Manager {
	return &Manager{
		games:    make(map[string]*Game),
		cfg:      cfg,
		ttl:      ttl,
		sched:    sched,
		notifier: notifier,
		hooks:    hooks,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a new game under a fresh session id.
func (m *Manager) Create(ctx context.Context) *Game {
	id := uuid.NewString()
	g := New(ctx, id, m.cfg, Deps{
		Scheduler: m.sched,
		Notifier:  m.notifier,
		Hooks:     m.hooks,
		Logger:    m.logger,
		Now:       m.now,
	})
	m.mu.Lock()
	m.games[id] = g
	m.mu.Unlock()
	m.logger.Info("game session registered", zap.String("session_id", id))
	return g
}

// Get returns the game for a session id.
func (m *Manager) Get(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return g, nil
}

// Remove closes and forgets a game.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	g, ok := m.games[id]
	delete(m.games, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	g.Close(ctx)
	m.logger.Info("game session unregistered", zap.String("session_id", id))
	return nil
}

// Count returns the number of live games.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// IDs returns a snapshot of the live session ids.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.games))
	for id := range m.games {
		out = append(out, id)
	}
	return out
}

// CollectIdle closes every game idle longer than the ttl and returns how
// many were removed.
func (m *Manager) CollectIdle(ctx context.Context) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	m.mu.RLock()
	var stale []string
	for id, g := range m.games {
		if g.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		_ = m.Remove(ctx, id)
	}
	if len(stale) > 0 {
		m.logger.Info("idle sessions collected", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// StartGC schedules CollectIdle at the given interval. A non-positive
// interval leaves idle collection off.
func (m *Manager) StartGC(interval time.Duration) {
	if interval <= 0 {
		m.logger.Info("session gc disabled", zap.Duration("interval", interval))
		return
	}
	m.sched.Every(gcOwner, "session_gc", interval, func() {
		m.CollectIdle(context.Background())
	})
}

// CloseAll closes every live game and drops its pending box reveals.
// It runs on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	for _, id := range m.IDs() {
		_ = m.Remove(ctx, id)
		m.sched.Cancel(id)
	}
}
