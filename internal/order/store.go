package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Order lifecycle states.
const (
	StatusCreated = "CREATED"
	StatusPaid    = "PAID"
	StatusVoided  = "VOIDED"
)

// Sentinel errors surfaced to handlers.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrBadTransition = errors.New("invalid order status transition")
)

// Order is a finalized sale. Snapshot is the pricing computed at checkout;
// every downstream amount (tenders, invoice, receipt) reads from it, never
// from a recomputation.
type Order struct {
	ID        uuid.UUID        `json:"id"`
	CartID    string           `json:"cartId"`
	CashierID string           `json:"cashierId,omitempty"`
	Status    string           `json:"status"`
	Currency  string           `json:"currency"`
	Snapshot  pricing.Snapshot `json:"snapshot"`
	Notes     *string          `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	PaidAt    *time.Time       `json:"paidAt,omitempty"`
}

// PgStore persists orders in Postgres. The snapshot is stored as JSONB with
// its totals denormalized into columns for reporting queries.
type PgStore struct {
	Pool *pgxpool.Pool
}

// CreateTx inserts the order inside the caller's transaction.
func (s *PgStore) CreateTx(ctx context.Context, tx pgx.Tx, o Order) error {
	snap, err := json.Marshal(o.Snapshot)
	if err != nil {
		return fmt.Errorf("order: encode snapshot: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, cart_id, cashier_id, status, currency, snapshot,
			subtotal, discount, tax, total, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.CartID, o.CashierID, o.Status, o.Currency, snap,
		o.Snapshot.Totals.Subtotal, o.Snapshot.Totals.Discount,
		o.Snapshot.Totals.Tax, o.Snapshot.Totals.Total,
		o.Notes, o.CreatedAt,
	)
	return err
}

// Create inserts the order in its own transaction.
func (s *PgStore) Create(ctx context.Context, o Order) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := s.CreateTx(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, cart_id, cashier_id, status, currency, snapshot, notes, created_at, paid_at`

// Get loads one order by id.
func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	row := s.Pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns), id)
	return scanOrder(row)
}

// List returns a page of orders, newest first, with the total count.
func (s *PgStore) List(ctx context.Context, limit, offset int) ([]Order, int64, error) {
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.Pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, orderColumns),
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// MarkPaid transitions a created order to paid.
func (s *PgStore) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE orders SET status = $1, paid_at = $2 WHERE id = $3 AND status = $4`,
		StatusPaid, paidAt, id, StatusCreated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, id)
	}
	return nil
}

// Void cancels an order that has not been paid.
func (s *PgStore) Void(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		StatusVoided, id, StatusCreated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, id)
	}
	return nil
}

func (s *PgStore) transitionError(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); errors.Is(err, ErrOrderNotFound) {
		return ErrOrderNotFound
	}
	return ErrBadTransition
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o    Order
		snap []byte
	)
	err := row.Scan(&o.ID, &o.CartID, &o.CashierID, &o.Status, &o.Currency, &snap,
		&o.Notes, &o.CreatedAt, &o.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(snap, &o.Snapshot); err != nil {
		return Order{}, fmt.Errorf("order: decode snapshot: %w", err)
	}
	return o, nil
}
