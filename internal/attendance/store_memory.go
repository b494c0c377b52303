package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tapsync/pkg/sentinel"
)

// InMemoryStore keeps the attendance log in a map. Used in development and
// tests; the Postgres store is the production implementation.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.records[rec.Key]; ok {
		// Merge: settled fields stay, only provenance moves.
		existing.RecordedAt = now
		s.records[rec.Key] = existing
		return nil
	}
	rec.RecordedAt = now
	s.records[rec.Key] = rec
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("attendance %q: %w", key, sentinel.ErrNotFound)
	}
	return &rec, nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].Key > out[j].Key
	})
	return out, nil
}
