// Package repository persists customer profiles in Postgres.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"yfi-bank/backend/internal/profile/domain"
)

// ErrDuplicate reports a unique-constraint conflict on email, phone or identity id.
var ErrDuplicate = errors.New("profile: duplicate email, phone or identity")

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Insert stores a new profile and fills in its generated id and creation time.
func (r *PostgresRepo) Insert(ctx context.Context, p *domain.Profile) error {
	p.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO profiles
			(id, identity_id, email, phone, full_name, tax_id, birth_date,
			 street, number, complement, district, city, region, postal_code,
			 phone_verified, email_verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at
	`, p.ID, p.IdentityID, p.Email, p.Phone, p.FullName, p.TaxID, p.BirthDate,
		p.Address.Street, p.Address.Number, p.Address.Complement, p.Address.District,
		p.Address.City, p.Address.Region, p.Address.PostalCode,
		p.PhoneVerified, p.EmailVerified,
	).Scan(&p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteByIdentity removes the profile linked to the given identity id.
// Absence is not an error, so compensation is safe to retry.
func (r *PostgresRepo) DeleteByIdentity(ctx context.Context, identityID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE identity_id=$1`, identityID)
	return err
}

// ExistsByEmail reports whether a profile already holds the email.
func (r *PostgresRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM profiles WHERE email=$1`, email)
}

// ExistsByPhone reports whether a profile already holds the phone number.
func (r *PostgresRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM profiles WHERE phone=$1`, phone)
}

func (r *PostgresRepo) exists(ctx context.Context, query, arg string) (bool, error) {
	var one int
	err := r.db.QueryRow(ctx, query, arg).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
