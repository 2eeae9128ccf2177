// Package session persists per-user state: the last metrics entered, the
// last computed target and the last generated plan.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a user has no value under a key.
var ErrNotFound = errors.New("session: value not found")

// Store is a key-value store partitioned by user id.
type Store interface {
	Get(ctx context.Context, userID, key string) ([]byte, error)
	Put(ctx context.Context, userID, key string, value []byte) error
	Delete(ctx context.Context, userID, key string) error
	Clear(ctx context.Context, userID string) error
	Close() error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, userID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[userID][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Put(_ context.Context, userID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.values[userID]
	if !ok {
		m = make(map[string][]byte)
		s.values[userID] = m
	}
	m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[userID], key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, userID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
