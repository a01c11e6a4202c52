package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/khanhERP/laundry-pos/internal/cart"
	"github.com/khanhERP/laundry-pos/internal/events"
	"github.com/khanhERP/laundry-pos/internal/lock"
	"github.com/khanhERP/laundry-pos/internal/obs"
	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Input is the checkout request.
type Input struct {
	CartID string  `json:"cartId"`
	Notes  *string `json:"notes,omitempty"`
}

// Output carries the created order and the snapshot every downstream consumer
// must read amounts from.
type Output struct {
	OrderID  string           `json:"orderId"`
	Status   string           `json:"status"`
	Currency string           `json:"currency"`
	Snapshot pricing.Snapshot `json:"snapshot"`
}

// OrderStore is the subset of order persistence checkout needs.
type OrderStore interface {
	Create(ctx context.Context, o order.Order) error
}

// Service turns an open cart into a finalized order. Pricing happens exactly
// once here; the resulting snapshot is persisted with the order and is the
// only source of amounts afterwards.
type Service struct {
	Carts    *cart.Service
	Orders   OrderStore
	Events   *events.Bus
	Locks    lock.Locker
	Currency string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create prices the cart, persists the order with its snapshot, and removes
// the cart. The cart is locked for the duration so two registers cannot check
// out the same ticket concurrently.
func (s *Service) Create(ctx context.Context, cashierID string, in Input) (Output, error) {
	if s == nil || s.Carts == nil || s.Orders == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	cartID := strings.TrimSpace(in.CartID)
	if cartID == "" {
		return Output{}, fmt.Errorf("cartId is required: %w", pricing.ErrValidation)
	}

	var out Output
	err := s.Locks.WithLock(ctx, "checkout:cart:"+cartID, 30*time.Second, func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, cartID)
		if err != nil {
			return err
		}
		snap, err := s.Carts.PriceCart(ctx, c)
		if err != nil {
			if errors.Is(err, pricing.ErrReconciliation) && obs.ReconciliationFailuresTotal != nil {
				obs.ReconciliationFailuresTotal.Inc()
			}
			return err
		}

		o := order.Order{
			ID:        uuid.New(),
			CartID:    cartID,
			CashierID: cashierID,
			Status:    order.StatusCreated,
			Currency:  s.Currency,
			Snapshot:  snap,
			Notes:     in.Notes,
			CreatedAt: s.now(),
		}
		if err := s.Orders.Create(ctx, o); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}

		if s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicOrderCreated,
				pgtype.UUID{Bytes: o.ID, Valid: true},
				map[string]any{
					"orderId":  o.ID.String(),
					"cartId":   cartID,
					"total":    snap.Totals.Total,
					"currency": s.Currency,
				})
		}
		_ = s.Carts.Delete(ctx, cartID)

		out = Output{
			OrderID:  o.ID.String(),
			Status:   o.Status,
			Currency: s.Currency,
			Snapshot: snap,
		}
		return nil
	})
	if obs.CheckoutTotal != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		return Output{}, err
	}
	return out, nil
}
