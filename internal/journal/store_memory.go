package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"flightsurety/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	ids     map[uuid.UUID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{ids: make(map[uuid.UUID]struct{})}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[entry.ID]; dup {
		return Entry{}, fmt.Errorf("append entry %s: %w", entry.ID, sentinel.ErrConflict)
	}
	entry.Seq = int64(len(s.entries)) + 1
	s.entries = append(s.entries, entry)
	s.ids[entry.ID] = struct{}{}
	return entry, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...), nil
}

// Clear drops every entry.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.ids = make(map[uuid.UUID]struct{})
}
