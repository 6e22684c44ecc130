package lru

import (
	"container/list"
	"sync"

	"github.com/edulens/edulens/internal/eviction"
)

// LRU implements eviction.Strategy as a recency list. Writes always move an
// entry to the front; reads only do so when refreshOnAccess is set, which
// turns it from least-recently-modified into least-recently-used.
type LRU struct {
	mu              sync.Mutex
	list            *list.List
	items           map[string]*list.Element
	refreshOnAccess bool
}

type entry struct {
	key  string
	size int64
}

func init() {
	eviction.Register("lru", func() eviction.Strategy {
		return New()
	})
	eviction.Register("lrm", func() eviction.Strategy {
		return NewModified()
	})
}

// New returns a least-recently-used strategy.
func New() *LRU {
	return &LRU{
		list:            list.New(),
		items:           make(map[string]*list.Element),
		refreshOnAccess: true,
	}
}

// NewModified returns a least-recently-modified strategy.
func NewModified() *LRU {
	l := New()
	l.refreshOnAccess = false
	return l
}

func (l *LRU) OnAdd(key string, size int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		l.list.MoveToFront(elem)
		ent := elem.Value.(*entry)
		oldSize := ent.size
		ent.size = size
		return size - oldSize
	}

	ent := &entry{key: key, size: size}
	l.items[key] = l.list.PushFront(ent)
	return size
}

func (l *LRU) OnAccess(key string) {
	if !l.refreshOnAccess {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		l.list.MoveToFront(elem)
	}
}

func (l *LRU) Remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		l.list.Remove(elem)
		delete(l.items, key)
	}
}

func (l *LRU) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.list.Init()
	l.items = make(map[string]*list.Element)
}

// Len returns the number of tracked keys.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Len()
}

func (l *LRU) GetVictims(currentSize int64, targetSize int64) []eviction.Victim {
	l.mu.Lock()
	defer l.mu.Unlock()

	var victims []eviction.Victim
	size := currentSize

	// Traverse from back without modifying
	elem := l.list.Back()
	for size > targetSize && elem != nil {
		ent := elem.Value.(*entry)
		victims = append(victims, eviction.Victim{Key: ent.key, Size: ent.size})
		size -= ent.size
		elem = elem.Prev()
	}

	return victims
}
