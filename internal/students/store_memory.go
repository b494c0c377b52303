package students

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tapsync/pkg/sentinel"
)

// InMemoryStore keeps the registry in a map for development and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	students map[string]Student
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{students: make(map[string]Student)}
}

func (s *InMemoryStore) Get(_ context.Context, rfid string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[rfid]
	if !ok {
		return nil, fmt.Errorf("student %q: %w", rfid, sentinel.ErrNotFound)
	}
	return &st, nil
}

func (s *InMemoryStore) CreateIfAbsent(_ context.Context, st Student) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The existence check and insert share the lock, so a registration that
	// landed first can never be overwritten here.
	if _, ok := s.students[st.RFID]; ok {
		return false, nil
	}
	s.students[st.RFID] = st
	return true, nil
}

func (s *InMemoryStore) Put(_ context.Context, st Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.RFID] = st
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RFID < out[j].RFID })
	return out, nil
}
