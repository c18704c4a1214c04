package session

import (
	"context"
	"encoding/json"
	"sync"

	"yfi-bank/backend/internal/wizard/domain"
)

// MemoryStore is an in-process session store for tests and local development.
// It round-trips states through JSON so it loses exactly what the Redis store
// loses (notably passwords, which are excluded from serialization).
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.StepState, error) {
	s.mu.Lock()
	raw, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var state domain.StepState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *MemoryStore) Put(_ context.Context, state *domain.StepState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[state.SessionID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}
