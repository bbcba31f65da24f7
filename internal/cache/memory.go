package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMemoryEntries = 100_000

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero = never
}

// MemoryStore is an in-process LRU Store. Expired entries are dropped lazily
// on access and eagerly from the cold end on insert.
type MemoryStore struct {
	mu      sync.Mutex
	max     int
	entries map[string]*list.Element
	ordered *list.List
	now     func() time.Time
}

// NewMemoryStore returns a store holding at most max entries (a default
// bound when max <= 0).
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = defaultMemoryEntries
	}
	return &MemoryStore{
		max:     max,
		entries: make(map[string]*list.Element),
		ordered: list.New(),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*memoryEntry)
	if e.expired(m.now()) {
		m.removeElement(el)
		return nil, false, nil
	}
	m.ordered.MoveToFront(el)
	return append([]byte(nil), e.value...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	v := append([]byte(nil), value...)
	if el, ok := m.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value = v
		e.expiresAt = exp
		m.ordered.MoveToFront(el)
		return nil
	}
	m.entries[key] = m.ordered.PushFront(&memoryEntry{key: key, value: v, expiresAt: exp})
	m.evict(now)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ordered.Len()
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (m *MemoryStore) evict(now time.Time) {
	for el := m.ordered.Back(); el != nil; {
		if !el.Value.(*memoryEntry).expired(now) {
			break
		}
		prev := el.Prev()
		m.removeElement(el)
		el = prev
	}
	for m.ordered.Len() > m.max {
		m.removeElement(m.ordered.Back())
	}
}

func (m *MemoryStore) removeElement(el *list.Element) {
	delete(m.entries, el.Value.(*memoryEntry).key)
	m.ordered.Remove(el)
}
