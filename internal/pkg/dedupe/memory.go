package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryStore created with a non-positive capacity.
const DefaultMaxEntries = 100000

type memoryEntry struct {
	key  string
	seen time.Time
}

// MemoryStore is a process-local Store with a bounded number of keys.
// Entries are kept in acceptance order so the oldest one is evicted first.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a store holding at most maxEntries keys.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Seen(_ context.Context, key string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if el, ok := s.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		if now.Sub(entry.seen) < window {
			return true, nil
		}
		entry.seen = now
		s.order.MoveToBack(el)
		return false, nil
	}

	for s.order.Len() >= s.maxEntries {
		s.removeElement(s.order.Front())
	}

	s.entries[key] = s.order.PushBack(&memoryEntry{key: key, seen: now})
	return false, nil
}

// Sweep drops every entry accepted more than maxAge ago and returns how many
// were removed.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for el := s.order.Front(); el != nil; {
		entry := el.Value.(*memoryEntry)
		if entry.seen.After(cutoff) {
			break
		}
		next := el.Next()
		s.removeElement(el)
		removed++
		el = next
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *MemoryStore) removeElement(el *list.Element) {
	entry := el.Value.(*memoryEntry)
	delete(s.entries, entry.key)
	s.order.Remove(el)
}
