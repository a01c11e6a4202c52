package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Receipt is the register display and print payload for an order. Every
// amount comes from the order's pricing snapshot; tenders and change appear
// once the order is paid.
type Receipt struct {
	OrderID  string                    `json:"orderId"`
	Status   string                    `json:"status"`
	Currency string                    `json:"currency"`
	Lines    []pricing.LineAllocation  `json:"lines"`
	Totals   pricing.Totals            `json:"totals"`
	Tenders  []Tender                  `json:"tenders,omitempty"`
	Change   pricing.Money             `json:"change"`
	IssuedAt time.Time                 `json:"issuedAt"`
	PaidAt   *time.Time                `json:"paidAt,omitempty"`
}

// Receipt assembles the receipt payload for an order from its snapshot and,
// when the order is paid, its recorded settlement.
func (s *Service) Receipt(ctx context.Context, orderID uuid.UUID) (Receipt, error) {
	if s == nil || s.Orders == nil {
		return Receipt{}, errors.New("payment service not configured")
	}
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		OrderID:  o.ID.String(),
		Status:   o.Status,
		Currency: o.Currency,
		Lines:    o.Snapshot.Lines,
		Totals:   o.Snapshot.Totals,
		IssuedAt: o.CreatedAt,
		PaidAt:   o.PaidAt,
	}
	if o.Status != order.StatusPaid || s.Store == nil {
		return receipt, nil
	}
	settlement, err := s.Store.GetSettlement(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrSettlementNotFound) {
			return receipt, nil
		}
		return Receipt{}, err
	}
	receipt.Tenders = settlement.Tenders
	receipt.Change = settlement.Change
	return receipt, nil
}
