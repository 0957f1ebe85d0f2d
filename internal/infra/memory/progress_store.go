package memory

import (
	"context"
	"sync"
)

// ProgressStore is an in-memory implementation of app.ProgressStore, useful
// for tests and demo runs without Redis.
type ProgressStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{values: make(map[string]map[string]string)}
}

func (s *ProgressStore) GetMany(_ context.Context, playerID string, keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := s.values[playerID][key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

func (s *ProgressStore) SetMany(_ context.Context, playerID string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[playerID] == nil {
		s.values[playerID] = make(map[string]string, len(values))
	}
	for k, v := range values {
		s.values[playerID][k] = v
	}
	return nil
}
