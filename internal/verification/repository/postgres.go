// Package repository persists verification attempts so a signup session
// survives process restart without resetting code lifecycles.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yfi-bank/backend/internal/verification/domain"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore returns an attempt store backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the attempt for (sessionID, channel), or nil if none exists.
// It returns an error only for database failures, not for missing rows.
func (s *PostgresStore) Get(ctx context.Context, sessionID string, channel domain.ChannelKind) (*domain.Attempt, error) {
	var a domain.Attempt
	err := s.db.QueryRow(ctx, `
		SELECT session_id, channel, target, issued_at, expires_at, resend_available_at, check_count, status
		FROM verification_attempts
		WHERE session_id=$1 AND channel=$2
	`, sessionID, string(channel)).Scan(
		&a.SessionID, &a.Channel, &a.Target,
		&a.IssuedAt, &a.ExpiresAt, &a.ResendAvailableAt,
		&a.CheckCount, &a.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Put upserts the attempt for its (session, channel) key, superseding any prior row.
func (s *PostgresStore) Put(ctx context.Context, a *domain.Attempt) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO verification_attempts
			(session_id, channel, target, issued_at, expires_at, resend_available_at, check_count, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id, channel) DO UPDATE SET
			target=EXCLUDED.target,
			issued_at=EXCLUDED.issued_at,
			expires_at=EXCLUDED.expires_at,
			resend_available_at=EXCLUDED.resend_available_at,
			check_count=EXCLUDED.check_count,
			status=EXCLUDED.status
	`, a.SessionID, string(a.Channel), a.Target,
		a.IssuedAt, a.ExpiresAt, a.ResendAvailableAt,
		a.CheckCount, string(a.Status))
	return err
}
