package keystore

import "sync"

// MemoryStore keeps values for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Load(keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pick(s.values, keys), nil
}

func (s *MemoryStore) Save(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func pick(values map[string]string, keys []string) map[string]string {
	picked := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := values[k]; ok {
			picked[k] = v
		}
	}
	return picked
}
