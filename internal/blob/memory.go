package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = stored
	return "mem://" + key, nil
}

func (s *MemoryStore) Fetch(_ context.Context, url string) ([]byte, error) {
	key := strings.TrimPrefix(url, "mem://")
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Replace overwrites a stored object in place, bypassing Upload's
// write-once convention. Tests use it to simulate tampering.
func (s *MemoryStore) Replace(url string, data []byte) {
	key := strings.TrimPrefix(url, "mem://")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}
