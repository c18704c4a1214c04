// Package memory is an in-process attempt store for tests and local development.
package memory

import (
	"context"
	"sync"

	"yfi-bank/backend/internal/verification/domain"
)

type Store struct {
	mu       sync.Mutex
	attempts map[key]domain.Attempt
}

type key struct {
	session string
	channel domain.ChannelKind
}

func NewStore() *Store {
	return &Store{attempts: make(map[key]domain.Attempt)}
}

func (s *Store) Get(_ context.Context, sessionID string, channel domain.ChannelKind) (*domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[key{sessionID, channel}]
	if !ok {
		return nil, nil
	}
	cp := a
	return &cp, nil
}

func (s *Store) Put(_ context.Context, a *domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[key{a.SessionID, a.Channel}] = *a
	return nil
}
