package memory

import (
	"context"
	"sync"
)

// DocumentStore keeps rendered documents in memory and hands back stable
// pseudo-URLs so the delivery flow can run without a bucket.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string][]byte)}
}

func (s *DocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_ = ctx
	_ = contentType

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = append([]byte(nil), data...)
	return "memory://" + key, nil
}

// Document returns the stored bytes for key; test helper.
func (s *DocumentStore) Document(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key]
	return data, ok
}
