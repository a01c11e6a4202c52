package pricing

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeLineCoercesStrings(t *testing.T) {
	item, err := NormalizeLine(RawLine{
		ID:       "sku-1",
		Price:    "1,250,000",
		Quantity: "3",
		TaxRate:  "8",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.UnitPrice != 1_250_000 || item.Quantity != 3 || item.TaxRatePercent != 8 {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestNormalizeLineAcceptsNumbers(t *testing.T) {
	item, err := NormalizeLine(RawLine{
		ID:       "sku-1",
		Price:    float64(45_000),
		Quantity: json.Number("2"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.UnitPrice != 45_000 || item.Quantity != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.TaxRatePercent != 0 {
		t.Fatalf("missing tax rate should default to 0, got %v", item.TaxRatePercent)
	}
}

func TestNormalizeLineDiscountAndOverrides(t *testing.T) {
	item, err := NormalizeLine(RawLine{
		ID:             "sku-1",
		Price:          "110000",
		Quantity:       1,
		TaxRate:        10,
		Discount:       &RawDiscount{Kind: "PERCENT", Value: "12.5"},
		BeforeTaxPrice: "100,000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Discount == nil || item.Discount.Kind != DiscountPercent || item.Discount.Value != 12.5 {
		t.Fatalf("unexpected discount: %+v", item.Discount)
	}
	if item.BeforeTaxPrice == nil || *item.BeforeTaxPrice != 100_000 {
		t.Fatalf("unexpected before-tax price: %+v", item.BeforeTaxPrice)
	}
}

func TestNormalizeLineRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  RawLine
	}{
		{"missing id", RawLine{Price: 1000, Quantity: 1}},
		{"blank id", RawLine{ID: "  ", Price: 1000, Quantity: 1}},
		{"missing price", RawLine{ID: "a", Quantity: 1}},
		{"non numeric price", RawLine{ID: "a", Price: "abc", Quantity: 1}},
		{"negative price", RawLine{ID: "a", Price: -1, Quantity: 1}},
		{"missing quantity", RawLine{ID: "a", Price: 1000}},
		{"zero quantity", RawLine{ID: "a", Price: 1000, Quantity: 0}},
		{"fractional quantity", RawLine{ID: "a", Price: 1000, Quantity: 1.5}},
		{"negative tax rate", RawLine{ID: "a", Price: 1000, Quantity: 1, TaxRate: -3}},
		{"bad discount kind", RawLine{ID: "a", Price: 1000, Quantity: 1, Discount: &RawDiscount{Kind: "bogus", Value: 1}}},
		{"negative discount", RawLine{ID: "a", Price: 1000, Quantity: 1, Discount: &RawDiscount{Kind: "amount", Value: -5}}},
		{"bad override", RawLine{ID: "a", Price: 1000, Quantity: 1, AfterTaxPrice: "n/a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NormalizeLine(tc.raw); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	if _, err := Normalize(nil); !errors.Is(err, ErrNoLines) {
		t.Fatalf("expected ErrNoLines, got %v", err)
	}
}
