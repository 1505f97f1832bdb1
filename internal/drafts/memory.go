package drafts

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data    []byte
	savedAt time.Time
}

// MemoryStore keeps snapshots in process. Entries older than ttl are treated
// as missing; a zero ttl keeps them until deleted or purged.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, tabID string, data []byte) error {
	if err := checkTab(tabID); err != nil {
		return err
	}
	cp := append([]byte(nil), data...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tabID] = memoryEntry{data: cp, savedAt: s.now()}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, tabID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[tabID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(e.savedAt) > s.ttl {
		delete(s.entries, tabID)
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (s *MemoryStore) Delete(_ context.Context, tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tabID)
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, e := range s.entries {
		if e.savedAt.Before(before) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many snapshots are held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
