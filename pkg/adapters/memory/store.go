package memory

import (
	"context"
	"sync"

	"github.com/aretw0/funil/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use. State is local to the process and lost on restart.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Set stores a copy so later mutations by the caller do not leak in.
func (s *Store) Set(ctx context.Context, contactID string, session *domain.Session) error {
	copied := session.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[contactID] = copied
	return nil
}

// Get returns a copy of the stored session.
func (s *Store) Get(ctx context.Context, contactID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[contactID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, contactID)
	return nil
}

// List returns stored contacts.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
