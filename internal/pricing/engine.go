// Package pricing computes order totals for a checkout attempt.
//
// The engine turns cart lines plus an order-level discount and a tax mode
// into per-line allocations and order totals that reconcile exactly in
// integer currency units. Every consumer (payment collection, invoice
// submission, receipt rendering) reads the Snapshot produced here instead of
// recomputing figures from the raw cart.
package pricing

import (
	"errors"
	"fmt"
	"math"

	validator "github.com/go-playground/validator/v10"
)

// Money represents a monetary value stored in minor units.
type Money = int64

var (
	// ErrValidation is returned when a line fails input validation.
	ErrValidation = errors.New("pricing: invalid line input")
	// ErrNoLines is returned when the engine is invoked with an empty cart.
	ErrNoLines = errors.New("pricing: no lines")
	// ErrReconciliation signals that allocated discounts do not sum to the
	// authoritative order discount, or that the grand total is negative.
	// It indicates a programming defect, not a recoverable user error.
	ErrReconciliation = errors.New("pricing: allocation does not reconcile")
)

// DiscountKind distinguishes flat-amount from percentage discounts.
type DiscountKind string

const (
	// DiscountAmount is a flat discount in minor currency units.
	DiscountAmount DiscountKind = "amount"
	// DiscountPercent is a percentage of the pre-discount value.
	DiscountPercent DiscountKind = "percent"
)

// Discount describes either an order-level or a per-line discount.
type Discount struct {
	Kind  DiscountKind `json:"kind"`
	Value float64      `json:"value"`
}

// LineItem is a strictly typed cart line. All loosely typed input coercion
// happens in the normalizer; the engine only ever sees this shape.
type LineItem struct {
	ID             string  `json:"id" validate:"required"`
	UnitPrice      Money   `json:"unitPrice" validate:"gte=0"`
	Quantity       int     `json:"quantity" validate:"gt=0"`
	TaxRatePercent float64 `json:"taxRatePercent" validate:"gte=0"`

	// Discount is the per-line discount configured on this line, independent
	// of the order-level discount.
	Discount *Discount `json:"discount,omitempty"`

	// BeforeTaxPrice and AfterTaxPrice are authoritative per-unit catalog
	// prices. When present they take precedence over the rate-based tax
	// formula for the matching tax mode.
	BeforeTaxPrice *Money `json:"beforeTaxPrice,omitempty"`
	AfterTaxPrice  *Money `json:"afterTaxPrice,omitempty"`
}

// Strategy selects how a per-line discount interacts with the order-level
// discount. The legacy call sites disagreed, so the behavior is explicit.
type Strategy string

const (
	// StrategyAdditive sums the per-line discount with the line's share of
	// the order-level discount.
	StrategyAdditive Strategy = "additive"
	// StrategyOrderExclusive excludes lines carrying their own discount from
	// the order-level distribution.
	StrategyOrderExclusive Strategy = "order_exclusive"
)

// Options carries the store configuration the engine depends on.
type Options struct {
	PriceIncludesTax bool
	Strategy         Strategy
}

// LineAllocation is the per-line decomposition of the order figures.
// Immutable once produced.
type LineAllocation struct {
	LineID            string `json:"lineId"`
	PreDiscountValue  Money  `json:"preDiscountValue"`
	DiscountAllocated Money  `json:"discountAllocated"`
	NetAmount         Money  `json:"netAmount"`
	TaxAmount         Money  `json:"taxAmount"`
	LineTotal         Money  `json:"lineTotal"`
}

// Totals aggregates per-line results into order-level figures.
type Totals struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Discount Money `json:"discount"`
	Total    Money `json:"total"`
}

// Snapshot is the immutable result of one checkout computation. Downstream
// stages receive it by value and must not re-derive totals from the cart.
type Snapshot struct {
	Lines  []LineAllocation `json:"lines"`
	Totals Totals           `json:"totals"`
}

var validate = validator.New()

/// Compute runs the full pipeline: validation, discount allocation, per-line
// tax calculation, and aggregation. It is a pure function; identical inputs
// yield identical snapshots.
func Compute(lines []LineItem, order Discount, opts Options) (Snapshot, error) {
	if len(lines) == 0 {
		return Snapshot{}, ErrNoLines
	}
	for _, it := range lines {
		if err := validateLine(it); err != nil {
			return Snapshot{}, err
		}
	}

	plan, err := PlanDiscounts(lines, order, opts.Strategy)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{Lines: make([]LineAllocation, 0, len(lines))}
	var shareSum Money
	for i, it := range lines {
		discount := plan.PerItem[i] + plan.OrderShares[i]
		shareSum += plan.OrderShares[i]
		net, tax := TaxLine(it, discount, opts.PriceIncludesTax)
		alloc := LineAllocation{
			LineID:            it.ID,
			PreDiscountValue:  it.UnitPrice * Money(it.Quantity),
			DiscountAllocated: discount,
			NetAmount:         net,
			TaxAmount:         tax,
			LineTotal:         net + tax,
		}
		snapshot.Lines = append(snapshot.Lines, alloc)
		snapshot.Totals.Subtotal += net
		snapshot.Totals.Tax += tax
		snapshot.Totals.Discount += discount
	}
	snapshot.Totals.Total = snapshot.Totals.Subtotal + snapshot.Totals.Tax

	if shareSum != plan.OrderAmount {
		return Snapshot{}, fmt.Errorf("order shares sum %d, resolved discount %d: %w", shareSum, plan.OrderAmount, ErrReconciliation)
	}
	if snapshot.Totals.Total < 0 {
		return Snapshot{}, fmt.Errorf("total %d is negative: %w", snapshot.Totals.Total, ErrReconciliation)
	}
	return snapshot, nil
}

func validateLine(it LineItem) error {
	if err := validate.Struct(it); err != nil {
		return fmt.Errorf("line %q: %v: %w", it.ID, err, ErrValidation)
	}
	if it.Discount != nil {
		if it.Discount.Kind != DiscountAmount && it.Discount.Kind != DiscountPercent {
			return fmt.Errorf("line %q: unknown discount kind %q: %w", it.ID, it.Discount.Kind, ErrValidation)
		}
		if it.Discount.Value < 0 {
			return fmt.Errorf("line %q: discount value must not be negative: %w", it.ID, ErrValidation)
		}
	}
	return nil
}

// round converts to minor units rounding halves away from zero. All engine
// inputs are non-negative, so this matches half-up rounding.
func round(v float64) Money {
	return Money(math.Round(v))
}
