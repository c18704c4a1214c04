// Package session stores wizard state in Redis so a signup survives page
// reloads and server restarts until its TTL lapses.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"yfi-bank/backend/internal/wizard/domain"
)

const keyPrefix = "signup:session:"

type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisStore returns a session store whose entries expire after ttl.
// Every Put refreshes the TTL, so active sessions stay alive.
func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Get returns the stored state, or nil if the session is absent or expired.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.StepState, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var state domain.StepState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RedisStore) Put(ctx context.Context, state *domain.StepState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+state.SessionID, raw, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, keyPrefix+sessionID).Err()
}
