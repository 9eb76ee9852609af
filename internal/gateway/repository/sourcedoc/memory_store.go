package sourcedoc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is the in-process fallback used when no object storage is
// configured, and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, protocolID, path string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	protocolID = strings.TrimSpace(protocolID)
	path = strings.TrimSpace(path)
	if protocolID == "" {
		return fmt.Errorf("protocol_id is required")
	}
	if path == "" {
		return fmt.Errorf("path is required")
	}
	key := objectKey(protocolID, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, protocolID, path string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	protocolID = strings.TrimSpace(protocolID)
	path = strings.TrimSpace(path)
	if protocolID == "" {
		return nil, fmt.Errorf("protocol_id is required")
	}
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	key := objectKey(protocolID, path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, protocolID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	protocolID = strings.TrimSpace(protocolID)
	if protocolID == "" {
		return nil, fmt.Errorf("protocol_id is required")
	}
	prefix := protocolID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 16)
	for key := range s.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, strings.TrimPrefix(key, prefix))
	}
	sort.Strings(out)
	return out, nil
}

// GetURL on the memory store has no real link to hand out.
func (s *MemoryStore) GetURL(_ context.Context, _, _ string) (string, error) {
	return "", nil
}
