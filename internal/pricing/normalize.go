package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawDiscount mirrors Discount but tolerates a loosely typed value.
type RawDiscount struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// RawLine is a cart line as it arrives from the POS frontend, where numeric
// fields may be JSON numbers or numeric strings (possibly with thousands
// separators). The normalizer is the only component that touches this shape.
type RawLine struct {
	ID             string       `json:"id"`
	Price          any          `json:"price"`
	Quantity       any          `json:"quantity"`
	TaxRate        any          `json:"taxRate,omitempty"`
	Discount       *RawDiscount `json:"discount,omitempty"`
	BeforeTaxPrice any          `json:"beforeTaxPrice,omitempty"`
	AfterTaxPrice  any          `json:"afterTaxPrice,omitempty"`
}

// Normalize coerces every raw line into a strictly typed LineItem. The first
// malformed line aborts the batch.
func Normalize(raw []RawLine) ([]LineItem, error) {
	if len(raw) == 0 {
		return nil, ErrNoLines
	}
	items := make([]LineItem, 0, len(raw))
	for _, r := range raw {
		item, err := NormalizeLine(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// NormalizeLine coerces one raw line. It fails with ErrValidation when a
// required field is absent, non-numeric after stripping separators, or out
// of range. A missing tax rate degrades to zero rather than failing.
func NormalizeLine(raw RawLine) (LineItem, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return LineItem{}, fmt.Errorf("line id is required: %w", ErrValidation)
	}

	price, ok := ToNumber(raw.Price)
	if !ok {
		return LineItem{}, fmt.Errorf("line %q: price is required and must be numeric: %w", id, ErrValidation)
	}
	if price < 0 {
		return LineItem{}, fmt.Errorf("line %q: price must not be negative: %w", id, ErrValidation)
	}

	qty, ok := ToNumber(raw.Quantity)
	if !ok {
		return LineItem{}, fmt.Errorf("line %q: quantity is required and must be numeric: %w", id, ErrValidation)
	}
	if qty != math.Trunc(qty) {
		return LineItem{}, fmt.Errorf("line %q: quantity must be a whole number: %w", id, ErrValidation)
	}
	if qty <= 0 {
		return LineItem{}, fmt.Errorf("line %q: quantity must be positive: %w", id, ErrValidation)
	}

	rate := 0.0
	if raw.TaxRate != nil {
		rate, ok = ToNumber(raw.TaxRate)
		if !ok {
			return LineItem{}, fmt.Errorf("line %q: tax rate must be numeric: %w", id, ErrValidation)
		}
		if rate < 0 {
			return LineItem{}, fmt.Errorf("line %q: tax rate must not be negative: %w", id, ErrValidation)
		}
	}

	item := LineItem{
		ID:             id,
		UnitPrice:      round(price),
		Quantity:       int(qty),
		TaxRatePercent: rate,
	}

	if raw.Discount != nil {
		kind := DiscountKind(strings.ToLower(strings.TrimSpace(raw.Discount.Kind)))
		if kind != DiscountAmount && kind != DiscountPercent {
			return LineItem{}, fmt.Errorf("line %q: unknown discount kind %q: %w", id, raw.Discount.Kind, ErrValidation)
		}
		value, ok := ToNumber(raw.Discount.Value)
		if !ok {
			return LineItem{}, fmt.Errorf("line %q: discount value must be numeric: %w", id, ErrValidation)
		}
		if value < 0 {
			return LineItem{}, fmt.Errorf("line %q: discount value must not be negative: %w", id, ErrValidation)
		}
		item.Discount = &Discount{Kind: kind, Value: value}
	}

	if raw.BeforeTaxPrice != nil {
		v, ok := ToNumber(raw.BeforeTaxPrice)
		if !ok {
			return LineItem{}, fmt.Errorf("line %q: beforeTaxPrice must be numeric: %w", id, ErrValidation)
		}
		m := round(v)
		item.BeforeTaxPrice = &m
	}
	if raw.AfterTaxPrice != nil {
		v, ok := ToNumber(raw.AfterTaxPrice)
		if !ok {
			return LineItem{}, fmt.Errorf("line %q: afterTaxPrice must be numeric: %w", id, ErrValidation)
		}
		m := round(v)
		item.AfterTaxPrice = &m
	}

	return item, nil
}

// ToNumber coerces the loosely typed values the legacy frontend sends:
// JSON numbers, integers, and numeric strings with optional thousands
// separators.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		if cleaned == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
