package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"yfi-bank/backend/internal/audit/domain"
)

// Repository is the minimal persistence surface the audit logger needs.
type Repository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository returns an audit log repository that uses the given pool for persistence.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, session_id, action, resource, severity, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, a.SessionID, a.Action, a.Resource, string(a.Severity), a.Metadata, a.CreatedAt)
	return err
}
