package invoice

import (
	"errors"
	"time"

	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Seller identifies the issuing store on submitted invoices.
type Seller struct {
	Name    string `json:"name"`
	TaxCode string `json:"taxCode"`
	Address string `json:"address,omitempty"`
}

// Line is one invoice line, carried over from the pricing snapshot.
type Line struct {
	ItemID    string        `json:"itemId"`
	Net       pricing.Money `json:"net"`
	Tax       pricing.Money `json:"tax"`
	Discount  pricing.Money `json:"discount"`
	LineTotal pricing.Money `json:"lineTotal"`
}

// Payload is the document submitted to the e-invoice provider. Every amount
// comes from the order's pricing snapshot; nothing is recomputed here.
type Payload struct {
	OrderID  string         `json:"orderId"`
	Seller   Seller         `json:"seller"`
	Currency string         `json:"currency"`
	IssuedAt time.Time      `json:"issuedAt"`
	Lines    []Line         `json:"lines"`
	Totals   pricing.Totals `json:"totals"`
}

// Builder assembles invoice payloads from paid orders.
type Builder struct {
	Seller Seller
}

// Build maps the order's snapshot into a provider payload. Orders that have
// not been paid cannot be invoiced.
func (b Builder) Build(o order.Order) (Payload, error) {
	if o.Status != order.StatusPaid {
		return Payload{}, errors.New("invoice: order is not paid")
	}
	issuedAt := o.CreatedAt
	if o.PaidAt != nil {
		issuedAt = *o.PaidAt
	}
	lines := make([]Line, 0, len(o.Snapshot.Lines))
	for _, l := range o.Snapshot.Lines {
		lines = append(lines, Line{
			ItemID:    l.LineID,
			Net:       l.NetAmount,
			Tax:       l.TaxAmount,
			Discount:  l.DiscountAllocated,
			LineTotal: l.LineTotal,
		})
	}
	return Payload{
		OrderID:  o.ID.String(),
		Seller:   b.Seller,
		Currency: o.Currency,
		IssuedAt: issuedAt,
		Lines:    lines,
		Totals:   o.Snapshot.Totals,
	}, nil
}
