package storage

import "sync"

// MemKV is a map-backed adapter for tests and ephemeral runs.
type MemKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string][]byte)}
}

func (s *MemKV) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (s *MemKV) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

func (s *MemKV) Close() error { return nil }
