// Package memory implements the conversation store: an append-only log of turns
// and thinking notes, persisted in full after every mutation.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/ink/internal/domain"
	"github.com/ashureev/ink/internal/store"
)

const (
	// MaxRetained is the number of turns and thoughts kept in the snapshot.
	MaxRetained = 100
	// DefaultContextLimit is the number of turns returned by RecentContext when no limit is given.
	DefaultContextLimit = 10
)

// ThoughtListener is notified after a thought has been persisted.
type ThoughtListener func(domain.ThoughtEntry)

// Memory owns the session log for one engine.
type Memory struct {
	store  store.SnapshotStore
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	turns    []domain.Turn
	thoughts []domain.ThoughtEntry

	listenersMu sync.RWMutex
	listeners   map[int]ThoughtListener
	nextID      int
}

// Option configures a Memory.
type Option func(*Memory)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Memory) {
		m.logger = logger
	}
}

// New creates an empty Memory backed by st. Call Load to rehydrate it.
func New(st store.SnapshotStore, opts ...Option) *Memory {
	m := &Memory{
		store:     st,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    slog.Default(),
		listeners: make(map[int]ThoughtListener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the in-memory log with the persisted snapshot. A missing snapshot
// leaves the log empty. A corrupt snapshot has been quarantined by the store; the
// log starts empty and a warning is logged.
func (m *Memory) Load(ctx context.Context) error {
	snap, err := m.store.Load(ctx)
	if errors.Is(err, store.ErrCorruptSnapshot) {
		m.logger.Warn("Conversation snapshot was corrupt, starting empty", "error", err)
		snap, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
	m.thoughts = nil
	if snap != nil {
		m.turns = tail(snap.CurrentSession, MaxRetained)
		m.thoughts = tail(snap.ThinkingLog, MaxRetained)
	}
	m.logger.Info("Conversation loaded", "turns", len(m.turns), "thoughts", len(m.thoughts))
	return nil
}

// AppendTurn records a message and persists the log.
func (m *Memory) AppendTurn(ctx context.Context, role domain.Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, domain.Turn{
		Role:      role,
		Content:   content,
		Timestamp: m.now(),
	})
	return m.saveLocked(ctx)
}

// AppendThought records a thinking note, persists the log and notifies listeners.
func (m *Memory) AppendThought(ctx context.Context, thought string) error {
	entry := domain.ThoughtEntry{Thought: thought, Timestamp: m.now()}

	m.mu.Lock()
	m.thoughts = append(m.thoughts, entry)
	err := m.saveLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.notify(entry)
	return nil
}

// RecentContext returns the last limit turns in chronological order.
// A limit <= 0 selects DefaultContextLimit.
func (m *Memory) RecentContext(limit int) []domain.Turn {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(tail(m.turns, limit))
}

// RecentThoughts returns the last limit thoughts in chronological order.
func (m *Memory) RecentThoughts(limit int) []domain.ThoughtEntry {
	if limit <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(tail(m.thoughts, limit))
}

// Clear empties the log and persists the empty state.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = nil
	m.thoughts = nil
	return m.saveLocked(ctx)
}

// Subscribe registers fn for every persisted thought. The returned func removes it.
func (m *Memory) Subscribe(fn ThoughtListener) func() {
	m.listenersMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

func (m *Memory) notify(entry domain.ThoughtEntry) {
	m.listenersMu.RLock()
	fns := make([]ThoughtListener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(entry)
	}
}

// saveLocked trims both sequences to the retention window and rewrites the snapshot.
// Callers must hold m.mu.
func (m *Memory) saveLocked(ctx context.Context) error {
	m.turns = tail(m.turns, MaxRetained)
	m.thoughts = tail(m.thoughts, MaxRetained)

	snap := &domain.Snapshot{
		CurrentSession: clone(m.turns),
		ThinkingLog:    clone(m.thoughts),
		LastUpdated:    m.now(),
	}
	if err := m.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// clone returns a non-nil copy so snapshots encode empty sequences as [].
func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
