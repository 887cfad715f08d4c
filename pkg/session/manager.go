package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/sluice/internal/engine"
	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// lockTTL bounds how long a replica may hold the distributed lock for one
// session operation before it expires on its own.
const lockTTL = 30 * time.Second

// lockEntry holds the per-session mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live sessions and serializes access to each one. It uses
// reference counting to garbage collect locks of finished sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*lockEntry

	locker ports.DistributedLocker
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking, serializing session access across
// replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for internal events, like deferred unlock
// failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*lockEntry),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// startConfig collects the per-session knobs.
type startConfig struct {
	id   string
	run  int
	seed uint64
}

// StartOption configures one session at creation.
type StartOption func(*startConfig)

// WithID names the session instead of generating an ID. Starting a second
// session under the same ID fails.
func WithID(id string) StartOption {
	return func(c *startConfig) { c.id = id }
}

// WithSeed sets the campaign seed of the session's RNG stream.
func WithSeed(seed uint64) StartOption {
	return func(c *startConfig) { c.seed = seed }
}

// WithRun selects which run index the session replays. Together with the
// seed this reproduces the exact stochastic draws of a campaign run.
func WithRun(run int) StartOption {
	return func(c *startConfig) { c.run = run }
}

// Start compiles the system, starts a fresh run at t=0 and registers it as a
// live session.
func (m *Manager) Start(ctx context.Context, sys *domain.System, opts ...StartOption) (*Session, error) {
	var cfg startConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}

	model, err := engine.Compile(sys)
	if err != nil {
		return nil, err
	}
	eng := engine.New(model, cfg.run, cfg.seed, engine.WithLogger(m.logger))
	if err := eng.Start(ctx); err != nil {
		return nil, err
	}

	s := &Session{
		ID:        cfg.id,
		System:    sys.Name,
		CreatedAt: time.Now().UTC(),
		eng:       eng,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return nil, fmt.Errorf("session %q already exists: %w", s.ID, domain.ErrDuplicateName)
	}
	m.sessions[s.ID] = s
	return s, nil
}

// Get returns a live session by ID.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns the live session IDs in sorted order.
func (m *Manager) List(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops the session's run and removes it. Closing an unknown session
// returns ErrSessionNotFound.
func (m *Manager) Close(ctx context.Context, id string) error {
	return m.With(ctx, id, func(ctx context.Context, s *Session) error {
		s.eng.Stop(ctx)
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.sessions, id)
		return nil
	})
}

// With executes fn while holding the session's lock, so steps from
// concurrent callers never interleave inside the engine.
func (m *Manager) With(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", id,
					"err", err,
				)
			}
		}()
	}

	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when it
// reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}
