// Package session manages the cached authentication state: a bearer token
// and user profile held redundantly in a session-scoped and a durable
// key-value store, read with session-scope precedence.
package session

import (
	"context"
	"sync"
)

// Storage keys shared by both scopes.
const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyCompanyID = "companyId"
)

// Store is a minimal key-value store. Get returns the empty string for
// absent keys; implementations must make Set and Delete atomic per key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value, or "" when absent.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

// Set stores a value.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
