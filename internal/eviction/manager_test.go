package eviction_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/edulens/edulens/internal/eviction"
	"github.com/edulens/edulens/internal/eviction/lru"
	"github.com/edulens/edulens/internal/eviction/policy"
	"github.com/edulens/edulens/internal/eviction/policy/maxsize"
)

type memStore struct {
	mu      sync.Mutex
	files   map[string]eviction.FileMetadata
	failing map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		files:   make(map[string]eviction.FileMetadata),
		failing: make(map[string]bool),
	}
}

func (s *memStore) put(key string, size int64, mod time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = eviction.FileMetadata{Key: key, Size: size, ModTime: mod}
}

func (s *memStore) Walk(fn func(eviction.FileMetadata) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[key] {
		return errors.New("permission denied")
	}
	delete(s.files, key)
	return nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newManager(t *testing.T, store eviction.Store, maxBytes int64) *eviction.Manager {
	t.Helper()
	mgr := eviction.NewManager([]policy.Policy{&maxsize.Policy{MaxBytes: maxBytes}}, 0, lru.NewModified())
	mgr.SetStore(store)
	if err := mgr.LoadInitialState(); err != nil {
		t.Fatalf("LoadInitialState failed: %v", err)
	}
	return mgr
}

func TestManager(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.put("newest", 20, base.Add(3*time.Hour))
	store.put("oldest", 20, base)
	store.put("middle", 20, base.Add(time.Hour))

	// 60 > 50, low water is 40: only the oldest entry has to go.
	mgr := newManager(t, store, 50)
	if got := mgr.CurrentBytes(); got != 60 {
		t.Fatalf("expected 60 tracked bytes, got %d", got)
	}

	res := mgr.RunEviction()
	if res.Evicted != 1 || res.Freed != 20 || res.After != 40 {
		t.Errorf("unexpected result: %+v", res)
	}
	if got := store.keys(); len(got) != 2 || got[0] != "middle" || got[1] != "newest" {
		t.Errorf("expected middle and newest to remain, got %v", got)
	}

	// A fresh write is the newest entry, so middle is next in line.
	store.put("fresh", 20, base.Add(4*time.Hour))
	mgr.Add("fresh", 20)
	mgr.RunEviction()

	if got := store.keys(); len(got) != 2 || got[0] != "fresh" || got[1] != "newest" {
		t.Errorf("expected fresh and newest to remain, got %v", got)
	}
}

func TestManagerUnderLimit(t *testing.T) {
	store := newMemStore()
	store.put("a", 10, time.Now())
	mgr := newManager(t, store, 100)

	res := mgr.RunEviction()
	if res.Evicted != 0 {
		t.Errorf("expected no eviction, got %+v", res)
	}
}

func TestManagerDeleteFailure(t *testing.T) {
	base := time.Now()
	store := newMemStore()
	store.put("stuck", 30, base)
	store.put("ok", 30, base.Add(time.Minute))
	store.failing["stuck"] = true

	mgr := newManager(t, store, 50)
	res := mgr.RunEviction()

	if res.Evicted != 0 {
		t.Errorf("expected no successful eviction when the victim cannot be removed, got %+v", res)
	}
	if mgr.CurrentBytes() != 60 {
		t.Errorf("failed deletes must stay tracked, got %d bytes", mgr.CurrentBytes())
	}
}

func TestManagerRemoveAndReset(t *testing.T) {
	store := newMemStore()
	store.put("a", 10, time.Now())
	store.put("b", 15, time.Now())
	mgr := newManager(t, store, 100)

	mgr.Remove("a", 10)
	if mgr.CurrentBytes() != 15 {
		t.Errorf("expected 15 after remove, got %d", mgr.CurrentBytes())
	}

	mgr.Reset()
	if mgr.CurrentBytes() != 0 {
		t.Errorf("expected 0 after reset, got %d", mgr.CurrentBytes())
	}
}

func TestManagerWithoutStore(t *testing.T) {
	mgr := eviction.NewManager(nil, 0, lru.New())
	if err := mgr.LoadInitialState(); !errors.Is(err, eviction.ErrNoStore) {
		t.Errorf("expected ErrNoStore, got %v", err)
	}
	if res := mgr.RunEviction(); res.Evicted != 0 {
		t.Errorf("expected no-op without store, got %+v", res)
	}
}

func TestManagerStart(t *testing.T) {
	store := newMemStore()
	store.put("a", 100, time.Now())

	mgr := eviction.NewManager([]policy.Policy{&maxsize.Policy{MaxBytes: 50}}, 5*time.Millisecond, lru.New())
	mgr.SetStore(store)
	if err := mgr.LoadInitialState(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(store.keys()) != 0 {
		select {
		case <-deadline:
			t.Fatal("background loop never evicted")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestManagerStartDisabled(t *testing.T) {
	mgr := eviction.NewManager(nil, 0, lru.New())
	done := make(chan struct{})
	go func() {
		mgr.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately without an interval")
	}
}
