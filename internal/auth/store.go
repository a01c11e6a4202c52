package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore reads cashiers from Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

// GetCashierByUsername fetches one cashier with credential material.
func (s *PgStore) GetCashierByUsername(ctx context.Context, username string) (CashierRecord, error) {
	var record CashierRecord
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, username, roles, password_hash, active
		FROM cashiers WHERE username = $1`,
		username,
	).Scan(&record.ID, &record.Name, &record.Username, &record.Roles, &record.PasswordHash, &record.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return CashierRecord{}, ErrCashierNotFound
	}
	if err != nil {
		return CashierRecord{}, err
	}
	return record, nil
}
