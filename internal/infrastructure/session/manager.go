// Package session keeps open form drafts in memory, scoped to the user that
// opened them, and discards idle ones.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"formdesk/internal/core/apperror"
	"formdesk/internal/core/id"
	"formdesk/pkg/logger"
)

// Draft is what the manager holds. Close must cancel pending work.
type Draft interface {
	ID() id.ID
	Close()
}

// Config configures Manager behavior.
type Config struct {
	// IdleTimeout discards drafts not used for this long (0 = never).
	IdleTimeout time.Duration
	// MaxDrafts bounds open drafts per owner (0 = unlimited).
	MaxDrafts int
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		IdleTimeout: 2 * time.Hour,
		MaxDrafts:   20,
	}
}

type managed[T Draft] struct {
	draft    T
	owner    string
	lastUsed atomic.Int64 // Unix nanoseconds
}

func (m *managed[T]) touch(now time.Time) { m.lastUsed.Store(now.UnixNano()) }

// Stats reports open drafts.
type Stats struct {
	Open    int            `json:"open"`
	ByOwner map[string]int `json:"byOwner,omitempty"`
}

// Manager holds the open drafts of one form kind. Thread-safe for
// concurrent access.
type Manager[T Draft] struct {
	config Config
	name   string
	now    func() time.Time

	mu     sync.Mutex
	drafts map[id.ID]*managed[T]

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
	log  *logger.Logger
}

// NewManager creates a manager and starts its eviction loop.
func NewManager[T Draft](name string, cfg Config, log *logger.Logger) *Manager[T] {
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager[T]{
		config: cfg,
		name:   name,
		now:    time.Now,
		drafts: make(map[id.ID]*managed[T]),
		stop:   make(chan struct{}),
		log:    log.WithComponent("drafts-" + name),
	}
	if cfg.IdleTimeout > 0 {
		m.wg.Add(1)
		go m.evictionLoop()
	}
	return m
}

// Put registers a new draft of owner.
func (m *Manager[T]) Put(owner string, draft T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxDrafts > 0 && m.countLocked(owner) >= m.config.MaxDrafts {
		return apperror.NewConflict("too many open drafts; discard one first").
			WithDetail("max_drafts", m.config.MaxDrafts)
	}
	md := &managed[T]{draft: draft, owner: owner}
	md.touch(m.now())
	m.drafts[draft.ID()] = md
	return nil
}

// Get returns the draft if owner opened it. Another owner's draft is
// reported as not found.
func (m *Manager[T]) Get(owner string, draftID id.ID) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.drafts[draftID]
	if !ok || md.owner != owner {
		var zero T
		return zero, apperror.NewNotFound("draft", draftID.String())
	}
	md.touch(m.now())
	return md.draft, nil
}

// Discard closes and forgets the draft.
func (m *Manager[T]) Discard(owner string, draftID id.ID) error {
	m.mu.Lock()
	md, ok := m.drafts[draftID]
	if !ok || md.owner != owner {
		m.mu.Unlock()
		return apperror.NewNotFound("draft", draftID.String())
	}
	delete(m.drafts, draftID)
	m.mu.Unlock()

	md.draft.Close()
	m.log.Debugw("draft discarded", "draft_id", draftID, "owner", owner)
	return nil
}

// Len returns the number of open drafts.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}

// Stats returns current manager statistics.
func (m *Manager[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Open: len(m.drafts), ByOwner: make(map[string]int)}
	for _, md := range m.drafts {
		s.ByOwner[md.owner]++
	}
	return s
}

func (m *Manager[T]) countLocked(owner string) int {
	n := 0
	for _, md := range m.drafts {
		if md.owner == owner {
			n++
		}
	}
	return n
}

// evictionLoop discards idle drafts periodically.
func (m *Manager[T]) evictionLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// EvictIdle closes drafts unused for longer than the idle timeout and
// returns how many were evicted.
func (m *Manager[T]) EvictIdle() int {
	if m.config.IdleTimeout <= 0 {
		return 0
	}
	threshold := m.now().Add(-m.config.IdleTimeout).UnixNano()

	m.mu.Lock()
	var idle []*managed[T]
	for key, md := range m.drafts {
		if md.lastUsed.Load() < threshold {
			delete(m.drafts, key)
			idle = append(idle, md)
		}
	}
	m.mu.Unlock()

	for _, md := range idle {
		md.draft.Close()
		m.log.Infow("draft evicted", "draft_id", md.draft.ID(), "owner", md.owner, "reason", "idle timeout")
	}
	return len(idle)
}

// Close stops the eviction loop and closes every draft.
func (m *Manager[T]) Close() {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()

	m.mu.Lock()
	drafts := m.drafts
	m.drafts = make(map[id.ID]*managed[T])
	m.mu.Unlock()

	for _, md := range drafts {
		md.draft.Close()
	}
	m.log.Infow("draft manager closed", "drafts_closed", len(drafts))
}
