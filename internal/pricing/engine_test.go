package pricing

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestComputeTwoLinesOrderDiscountExclusiveTax(t *testing.T) {
	lines := []LineItem{
		{ID: "l1", UnitPrice: 100_000, Quantity: 2, TaxRatePercent: 10},
		{ID: "l2", UnitPrice: 50_000, Quantity: 1, TaxRatePercent: 0},
	}
	snap, err := Compute(lines, Discount{Kind: DiscountAmount, Value: 30_000}, Options{PriceIncludesTax: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l1 := snap.Lines[0]
	if l1.DiscountAllocated != 24_000 || l1.NetAmount != 176_000 || l1.TaxAmount != 17_600 {
		t.Fatalf("line 1 = %+v, want discount 24000 net 176000 tax 17600", l1)
	}
	l2 := snap.Lines[1]
	if l2.DiscountAllocated != 6_000 || l2.NetAmount != 44_000 || l2.TaxAmount != 0 {
		t.Fatalf("line 2 = %+v, want discount 6000 net 44000 tax 0", l2)
	}
	want := Totals{Subtotal: 220_000, Tax: 17_600, Discount: 30_000, Total: 237_600}
	if snap.Totals != want {
		t.Fatalf("totals = %+v, want %+v", snap.Totals, want)
	}
}

func TestComputeSingleLineInclusiveTaxPercentDiscount(t *testing.T) {
	lines := []LineItem{{ID: "l1", UnitPrice: 110_000, Quantity: 1, TaxRatePercent: 10}}
	snap, err := Compute(lines, Discount{Kind: DiscountPercent, Value: 10}, Options{PriceIncludesTax: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Totals{Subtotal: 90_000, Tax: 9_000, Discount: 11_000, Total: 99_000}
	if snap.Totals != want {
		t.Fatalf("totals = %+v, want %+v", snap.Totals, want)
	}
}

func TestComputeZeroDiscountMatchesUndiscounted(t *testing.T) {
	lines := []LineItem{
		{ID: "a", UnitPrice: 35_000, Quantity: 3, TaxRatePercent: 8},
		{ID: "b", UnitPrice: 12_500, Quantity: 2, TaxRatePercent: 10},
	}
	withZero, err := Compute(lines, Discount{Kind: DiscountAmount, Value: 0}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, alloc := range withZero.Lines {
		if alloc.DiscountAllocated != 0 {
			t.Fatalf("line %s allocated %d, want 0", alloc.LineID, alloc.DiscountAllocated)
		}
	}
	if withZero.Totals.Discount != 0 {
		t.Fatalf("totals discount = %d, want 0", withZero.Totals.Discount)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	lines := []LineItem{
		{ID: "a", UnitPrice: 99_999, Quantity: 7, TaxRatePercent: 10},
		{ID: "b", UnitPrice: 1, Quantity: 13, TaxRatePercent: 5},
		{ID: "c", UnitPrice: 250_000, Quantity: 1, TaxRatePercent: 0},
	}
	order := Discount{Kind: DiscountPercent, Value: 7.5}
	opts := Options{PriceIncludesTax: true, Strategy: StrategyAdditive}

	first, err := Compute(lines, order, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Compute(lines, order, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestComputeRejectsInvalidLines(t *testing.T) {
	cases := []struct {
		name  string
		lines []LineItem
	}{
		{"zero quantity", []LineItem{{ID: "a", UnitPrice: 1000, Quantity: 0}}},
		{"negative price", []LineItem{{ID: "a", UnitPrice: -1, Quantity: 1}}},
		{"negative tax rate", []LineItem{{ID: "a", UnitPrice: 1000, Quantity: 1, TaxRatePercent: -5}}},
		{"missing id", []LineItem{{UnitPrice: 1000, Quantity: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.lines, Discount{}, Options{})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestComputeEmptyCart(t *testing.T) {
	_, err := Compute(nil, Discount{}, Options{})
	if !errors.Is(err, ErrNoLines) {
		t.Fatalf("expected ErrNoLines, got %v", err)
	}
}

// Randomized carts must always reconcile exactly and never produce negative
// tax or net amounts, in both tax modes and for both discount kinds.
func TestComputeReconciliationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(6)
		lines := make([]LineItem, 0, n)
		var cartValue Money
		for j := 0; j < n; j++ {
			it := LineItem{
				ID:             string(rune('a' + j)),
				UnitPrice:      Money(rng.Intn(500_000)),
				Quantity:       1 + rng.Intn(9),
				TaxRatePercent: float64(rng.Intn(3)) * 5,
			}
			cartValue += it.UnitPrice * Money(it.Quantity)
			lines = append(lines, it)
		}
		order := Discount{Kind: DiscountAmount, Value: float64(rng.Intn(int(cartValue/2 + 1)))}
		if i%2 == 0 {
			order = Discount{Kind: DiscountPercent, Value: float64(rng.Intn(50))}
		}
		opts := Options{PriceIncludesTax: i%3 == 0}

		snap, err := Compute(lines, order, opts)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}

		var discountSum, netSum, taxSum Money
		for _, alloc := range snap.Lines {
			if alloc.TaxAmount < 0 {
				t.Fatalf("iteration %d: negative tax on line %s", i, alloc.LineID)
			}
			if alloc.NetAmount < 0 {
				t.Fatalf("iteration %d: negative net on line %s", i, alloc.LineID)
			}
			discountSum += alloc.DiscountAllocated
			netSum += alloc.NetAmount
			taxSum += alloc.TaxAmount
		}
		if discountSum != snap.Totals.Discount {
			t.Fatalf("iteration %d: line discounts %d != totals discount %d", i, discountSum, snap.Totals.Discount)
		}
		if netSum != snap.Totals.Subtotal || taxSum != snap.Totals.Tax {
			t.Fatalf("iteration %d: line sums do not match totals", i)
		}
		if snap.Totals.Total != snap.Totals.Subtotal+snap.Totals.Tax {
			t.Fatalf("iteration %d: total %d != subtotal+tax", i, snap.Totals.Total)
		}
	}
}

// Under price-inclusive mode the tax is the residual of the gross line
// value, so net+tax must reconstruct the gross exactly for every line.
func TestComputeInclusiveModeResidual(t *testing.T) {
	lines := []LineItem{
		{ID: "a", UnitPrice: 33_333, Quantity: 3, TaxRatePercent: 10},
		{ID: "b", UnitPrice: 77_777, Quantity: 2, TaxRatePercent: 8},
	}
	snap, err := Compute(lines, Discount{Kind: DiscountAmount, Value: 10_000}, Options{PriceIncludesTax: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, alloc := range snap.Lines {
		gross := alloc.PreDiscountValue - alloc.DiscountAllocated
		if gross < 0 {
			gross = 0
		}
		if alloc.NetAmount+alloc.TaxAmount != gross {
			t.Fatalf("line %d: net %d + tax %d != gross %d", i, alloc.NetAmount, alloc.TaxAmount, gross)
		}
	}
}
