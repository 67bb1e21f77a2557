package job

import (
	"context"
	"sync"
	"time"

	"certpass/pkg/platform/sentinel"
)

// MemoryStore keeps job state in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]State)}
}

func (s *MemoryStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.UpdatedAt = time.Now()
	state.Items = append([]Item(nil), state.Items...)
	s.jobs[state.ID] = state
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.jobs[id]; ok {
		state.Items = append([]Item(nil), state.Items...)
		return state, nil
	}
	return State{}, sentinel.ErrNotFound
}
