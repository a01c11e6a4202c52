package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/khanhERP/laundry-pos/internal/events"
	"github.com/khanhERP/laundry-pos/internal/obs"
	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Tender methods accepted at the register.
const (
	MethodCash = "cash"
	MethodCard = "card"
	MethodQR   = "qr"
)

// Sentinel errors surfaced to handlers.
var (
	ErrNoTenders          = errors.New("payment: at least one tender is required")
	ErrTenderMismatch     = errors.New("payment: tenders do not cover the order total")
	ErrUnknownMethod      = errors.New("payment: unknown tender method")
	ErrSettlementNotFound = errors.New("payment: settlement not found")
)

// Tender is one payment instrument applied to an order.
type Tender struct {
	Method    string        `json:"method"`
	Amount    pricing.Money `json:"amount"`
	Reference string        `json:"reference,omitempty"`
}

// Settlement records how an order was paid. Change is returned only against a
// cash tender.
type Settlement struct {
	OrderID   uuid.UUID     `json:"orderId"`
	Tenders   []Tender      `json:"tenders"`
	Change    pricing.Money `json:"change"`
	SettledAt time.Time     `json:"settledAt"`
}

type orderStore interface {
	Get(ctx context.Context, id uuid.UUID) (order.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
}

type settlementStore interface {
	SaveSettlement(ctx context.Context, s Settlement) error
	GetSettlement(ctx context.Context, orderID uuid.UUID) (Settlement, error)
}

// Service settles orders with one or more tenders. Amounts are validated
// against the order's pricing snapshot, never recomputed.
type Service struct {
	Orders   orderStore
	Store    settlementStore
	Provider Provider
	Events   *events.Bus
	Currency string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Settle validates the tenders against the order total, confirms QR tenders
// with the provider, and marks the order paid.
func (s *Service) Settle(ctx context.Context, orderID uuid.UUID, tenders []Tender) (Settlement, error) {
	var zero Settlement
	if s == nil || s.Orders == nil {
		return zero, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Settle")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	if len(tenders) == 0 {
		return zero, ErrNoTenders
	}

	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return zero, err
	}
	if o.Status != order.StatusCreated {
		return zero, order.ErrBadTransition
	}

	var sum, cash pricing.Money
	for i := range tenders {
		tenders[i].Method = strings.ToLower(strings.TrimSpace(tenders[i].Method))
		t := tenders[i]
		switch t.Method {
		case MethodCash, MethodCard, MethodQR:
		default:
			s.countTender(t.Method, "rejected")
			return zero, fmt.Errorf("%w: %q", ErrUnknownMethod, t.Method)
		}
		if t.Amount <= 0 {
			s.countTender(t.Method, "rejected")
			return zero, fmt.Errorf("%w: non-positive amount", ErrTenderMismatch)
		}
		if t.Method == MethodCash {
			cash += t.Amount
		}
		sum += t.Amount
	}

	total := o.Snapshot.Totals.Total
	if sum < total {
		s.countTender("all", "short")
		return zero, fmt.Errorf("%w: tendered %d of %d", ErrTenderMismatch, sum, total)
	}
	change := sum - total
	if change > cash {
		// Only cash can absorb overpayment; card and QR capture exact amounts.
		s.countTender("all", "overpaid")
		return zero, fmt.Errorf("%w: change %d exceeds cash tendered %d", ErrTenderMismatch, change, cash)
	}

	for _, t := range tenders {
		if t.Method != MethodQR || s.Provider == nil {
			continue
		}
		result, err := s.Provider.Charge(ctx, ChargeRequest{
			OrderID:   orderID.String(),
			Reference: t.Reference,
			Amount:    t.Amount,
			Currency:  s.Currency,
		})
		if err != nil {
			s.countTender(MethodQR, "provider_error")
			s.emit(ctx, events.TopicPaymentFailed, o, map[string]any{"reason": err.Error()})
			return zero, err
		}
		if !result.Confirmed {
			s.countTender(MethodQR, "declined")
			return zero, fmt.Errorf("%w: qr charge not confirmed", ErrTenderMismatch)
		}
	}

	settlement := Settlement{
		OrderID:   orderID,
		Tenders:   tenders,
		Change:    change,
		SettledAt: s.now(),
	}
	if s.Store != nil {
		if err := s.Store.SaveSettlement(ctx, settlement); err != nil {
			return zero, fmt.Errorf("payment: persist settlement: %w", err)
		}
	}
	if err := s.Orders.MarkPaid(ctx, orderID, settlement.SettledAt); err != nil {
		return zero, err
	}
	for _, t := range tenders {
		s.countTender(t.Method, "ok")
	}
	s.emit(ctx, events.TopicPaymentSettled, o, map[string]any{
		"orderId": orderID.String(),
		"total":   total,
		"change":  change,
	})
	return settlement, nil
}

func (s *Service) countTender(method, result string) {
	if obs.TenderTotal != nil {
		obs.TenderTotal.WithLabelValues(method, result).Inc()
	}
}

func (s *Service) emit(ctx context.Context, topic string, o order.Order, payload map[string]any) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, pgtype.UUID{Bytes: o.ID, Valid: true}, payload)
}
