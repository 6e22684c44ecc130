package eviction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/eviction/policy"
)

var ErrNoStore = errors.New("store not initialized")

// Result summarizes one eviction sweep.
type Result struct {
	Evicted int
	Freed   int64
	Before  int64
	After   int64
}

// Manager manages cache eviction.
type Manager struct {
	store        Store
	policies     []policy.Policy
	strategy     Strategy
	currentBytes atomic.Int64
	interval     time.Duration
}

// NewManager creates a new Manager. An interval of zero disables the
// background loop; sweeps then only happen when RunEviction is called.
func NewManager(policies []policy.Policy, interval time.Duration, strategy Strategy) *Manager {
	return &Manager{
		policies: policies,
		interval: interval,
		strategy: strategy,
	}
}

// SetStore sets the underlying storage for the manager.
func (m *Manager) SetStore(store Store) {
	m.store = store
}

// LoadInitialState walks the store and seeds the strategy, oldest
// modification first, so the oldest entries end up as the first victims.
func (m *Manager) LoadInitialState() error {
	if m.store == nil {
		return ErrNoStore
	}

	var files []FileMetadata
	err := m.store.Walk(func(meta FileMetadata) error {
		files = append(files, meta)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk cache: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Key < files[j].Key
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})

	m.strategy.Reset()
	var totalSize int64
	for _, f := range files {
		totalSize += m.strategy.OnAdd(f.Key, f.Size)
	}

	m.currentBytes.Store(totalSize)
	slog.Debug("Initial cache state loaded", "count", len(files), "size", totalSize)
	return nil
}

// Start runs the background eviction loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunEviction()
		}
	}
}

// Add records a write and updates the tracked size.
func (m *Manager) Add(key string, size int64) {
	diff := m.strategy.OnAdd(key, size)
	m.currentBytes.Add(diff)
}

// Touch records a read.
func (m *Manager) Touch(key string) {
	m.strategy.OnAccess(key)
}

// Remove forgets a key deleted outside of an eviction sweep.
func (m *Manager) Remove(key string, size int64) {
	m.strategy.Remove(key)
	m.currentBytes.Add(-size)
}

// Reset forgets all tracked keys, e.g. after the store was cleared.
func (m *Manager) Reset() {
	m.strategy.Reset()
	m.currentBytes.Store(0)
}

// CurrentBytes returns the tracked total size.
func (m *Manager) CurrentBytes() int64 {
	return m.currentBytes.Load()
}

// RunEviction checks the policies and evicts entries if needed.
func (m *Manager) RunEviction() Result {
	current := m.currentBytes.Load()
	res := Result{Before: current, After: current}

	if m.store == nil {
		errutil.ReportError(ErrNoStore, "Cannot run eviction")
		return res
	}

	var maxToFree int64
	for _, p := range m.policies {
		toFree, err := p.BytesToFree(current)
		if err != nil {
			errutil.ReportError(err, "Failed to check capacity policy")
			continue
		}
		if toFree > maxToFree {
			maxToFree = toFree
		}
	}

	if maxToFree <= 0 {
		return res
	}

	targetSize := current - maxToFree
	if targetSize < 0 {
		targetSize = 0
	}

	victims := m.strategy.GetVictims(current, targetSize)
	if len(victims) == 0 {
		return res
	}

	slog.Info("Evicting cache entries", "count", len(victims), "current_size", current, "to_free", maxToFree, "target", targetSize)

	for _, victim := range victims {
		if err := m.store.Delete(victim.Key); err != nil {
			// Keep tracking it; the next sweep will retry.
			errutil.LogMsg(err, "Failed to remove cache entry", "key", victim.Key)
			continue
		}
		m.strategy.Remove(victim.Key)
		m.currentBytes.Add(-victim.Size)
		res.Evicted++
		res.Freed += victim.Size
	}

	res.After = m.currentBytes.Load()
	return res
}
