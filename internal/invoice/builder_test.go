package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/khanhERP/laundry-pos/internal/order"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

func paidOrder() order.Order {
	paidAt := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	return order.Order{
		ID:       uuid.New(),
		Status:   order.StatusPaid,
		Currency: "VND",
		Snapshot: pricing.Snapshot{
			Lines: []pricing.LineAllocation{
				{LineID: "l1", PreDiscountValue: 200_000, DiscountAllocated: 24_000, NetAmount: 176_000, TaxAmount: 17_600, LineTotal: 193_600},
				{LineID: "l2", PreDiscountValue: 50_000, DiscountAllocated: 6_000, NetAmount: 44_000, TaxAmount: 0, LineTotal: 44_000},
			},
			Totals: pricing.Totals{Subtotal: 220_000, Tax: 17_600, Discount: 30_000, Total: 237_600},
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		PaidAt:    &paidAt,
	}
}

func TestBuildCarriesSnapshotAmounts(t *testing.T) {
	b := Builder{Seller: Seller{Name: "Lau Lau Laundry", TaxCode: "0312345678"}}
	o := paidOrder()

	doc, err := b.Build(o)
	require.NoError(t, err)
	require.Equal(t, o.ID.String(), doc.OrderID)
	require.Equal(t, o.Snapshot.Totals, doc.Totals)
	require.Len(t, doc.Lines, 2)
	require.Equal(t, pricing.Money(176_000), doc.Lines[0].Net)
	require.Equal(t, pricing.Money(17_600), doc.Lines[0].Tax)
	require.Equal(t, *o.PaidAt, doc.IssuedAt)
}

func TestBuildRejectsUnpaidOrder(t *testing.T) {
	b := Builder{}
	o := paidOrder()
	o.Status = order.StatusCreated

	_, err := b.Build(o)
	require.Error(t, err)
}
