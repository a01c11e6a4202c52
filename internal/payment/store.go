package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists settlements in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

// SaveSettlement records the tenders applied to an order.
func (s *PgStore) SaveSettlement(ctx context.Context, settlement Settlement) error {
	tenders, err := json.Marshal(settlement.Tenders)
	if err != nil {
		return fmt.Errorf("payment: encode tenders: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO settlements (order_id, tenders, change, settled_at)
		VALUES ($1, $2, $3, $4)`,
		settlement.OrderID, tenders, settlement.Change, settlement.SettledAt,
	)
	return err
}

// GetSettlement loads the settlement recorded for an order.
func (s *PgStore) GetSettlement(ctx context.Context, orderID uuid.UUID) (Settlement, error) {
	var (
		settlement Settlement
		tenders    []byte
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT order_id, tenders, change, settled_at
		FROM settlements WHERE order_id = $1`,
		orderID,
	).Scan(&settlement.OrderID, &tenders, &settlement.Change, &settlement.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settlement{}, ErrSettlementNotFound
	}
	if err != nil {
		return Settlement{}, err
	}
	if err := json.Unmarshal(tenders, &settlement.Tenders); err != nil {
		return Settlement{}, fmt.Errorf("payment: decode tenders: %w", err)
	}
	return settlement, nil
}
