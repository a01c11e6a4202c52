package pricing

import "testing"

func TestTaxLineInclusive(t *testing.T) {
	it := LineItem{ID: "a", UnitPrice: 110_000, Quantity: 1, TaxRatePercent: 10}
	net, tax := TaxLine(it, 0, true)
	if net != 100_000 || tax != 10_000 {
		t.Fatalf("net = %d tax = %d, want 100000/10000", net, tax)
	}

	// Residual definition: net+tax reconstructs the gross even when the
	// division does not land on a whole unit.
	it = LineItem{ID: "a", UnitPrice: 99_999, Quantity: 1, TaxRatePercent: 7}
	net, tax = TaxLine(it, 0, true)
	if net+tax != 99_999 {
		t.Fatalf("net %d + tax %d != gross 99999", net, tax)
	}
}

func TestTaxLineExclusive(t *testing.T) {
	it := LineItem{ID: "a", UnitPrice: 100_000, Quantity: 2, TaxRatePercent: 10}
	net, tax := TaxLine(it, 24_000, false)
	if net != 176_000 || tax != 17_600 {
		t.Fatalf("net = %d tax = %d, want 176000/17600", net, tax)
	}
}

func TestTaxLineZeroRate(t *testing.T) {
	it := LineItem{ID: "a", UnitPrice: 50_000, Quantity: 1}
	if _, tax := TaxLine(it, 0, false); tax != 0 {
		t.Fatalf("exclusive tax = %d, want 0", tax)
	}
	net, tax := TaxLine(it, 0, true)
	if tax != 0 || net != 50_000 {
		t.Fatalf("inclusive net = %d tax = %d, want 50000/0", net, tax)
	}
}

func TestTaxLineBeforeTaxPriceOverride(t *testing.T) {
	before := Money(90_000)
	it := LineItem{ID: "a", UnitPrice: 100_000, Quantity: 2, TaxRatePercent: 10, BeforeTaxPrice: &before}
	net, tax := TaxLine(it, 0, true)
	// Catalog says 10000 tax per unit regardless of the 10% rate.
	if tax != 20_000 || net != 180_000 {
		t.Fatalf("net = %d tax = %d, want 180000/20000", net, tax)
	}
}

func TestTaxLineAfterTaxPriceOverride(t *testing.T) {
	after := Money(108_000)
	it := LineItem{ID: "a", UnitPrice: 100_000, Quantity: 1, TaxRatePercent: 10, AfterTaxPrice: &after}
	net, tax := TaxLine(it, 0, false)
	if tax != 8_000 || net != 100_000 {
		t.Fatalf("net = %d tax = %d, want 100000/8000", net, tax)
	}

	// Catalog price below the unit price never produces negative tax.
	after = 95_000
	if _, tax := TaxLine(it, 0, false); tax != 0 {
		t.Fatalf("tax = %d, want 0 when after-tax price is below unit price", tax)
	}
}

func TestTaxLineOverrideClampedToGross(t *testing.T) {
	before := Money(1_000)
	it := LineItem{ID: "a", UnitPrice: 100_000, Quantity: 1, TaxRatePercent: 10, BeforeTaxPrice: &before}
	// Discount shrinks the gross below the catalog tax; the tax is clamped
	// so the net never goes negative.
	net, tax := TaxLine(it, 50_000, true)
	if tax != 50_000 || net != 0 {
		t.Fatalf("net = %d tax = %d, want 0/50000", net, tax)
	}
}

func TestTaxLineDiscountExceedsLineValue(t *testing.T) {
	it := LineItem{ID: "a", UnitPrice: 10_000, Quantity: 1, TaxRatePercent: 10}
	net, tax := TaxLine(it, 15_000, true)
	if net != 0 || tax != 0 {
		t.Fatalf("net = %d tax = %d, want 0/0 when discount exceeds line value", net, tax)
	}
}
