package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore records submitted invoices in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

// SaveSubmission upserts the provider reference for an order's invoice.
func (s *PgStore) SaveSubmission(ctx context.Context, orderID uuid.UUID, providerRef string, submittedAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO invoices (order_id, provider_ref, submitted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO UPDATE
		SET provider_ref = EXCLUDED.provider_ref, submitted_at = EXCLUDED.submitted_at`,
		orderID, providerRef, submittedAt,
	)
	return err
}
