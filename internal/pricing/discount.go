package pricing

import "fmt"

// DiscountPlan is the result of resolving and distributing discounts across
// cart lines. Slices are indexed in line input order.
type DiscountPlan struct {
	// OrderAmount is the authoritative order-level discount in minor units.
	OrderAmount Money
	// OrderShares holds each line's share of OrderAmount. The shares sum to
	// OrderAmount exactly.
	OrderShares []Money
	// PerItem holds each line's resolved own discount.
	PerItem []Money
}

// PlanDiscounts resolves the order-level discount to a currency amount and
// distributes it across lines proportionally to pre-discount line value.
//
// Every line except the last eligible one receives a rounded proportional
// share; the last eligible line receives the remainder, so the shares always
// reconcile with the resolved amount no matter how the earlier shares round.
func PlanDiscounts(lines []LineItem, order Discount, strategy Strategy) (DiscountPlan, error) {
	if strategy == "" {
		strategy = StrategyAdditive
	}
	if strategy != StrategyAdditive && strategy != StrategyOrderExclusive {
		return DiscountPlan{}, fmt.Errorf("unknown discount strategy %q: %w", strategy, ErrValidation)
	}

	n := len(lines)
	plan := DiscountPlan{
		OrderShares: make([]Money, n),
		PerItem:     make([]Money, n),
	}

	var cartValue Money
	pre := make([]Money, n)
	for i, it := range lines {
		pre[i] = it.UnitPrice * Money(it.Quantity)
		cartValue += pre[i]
		plan.PerItem[i] = resolveLineDiscount(it, pre[i])
	}

	// Lines carrying their own discount opt out of the order-level
	// distribution under the exclusive strategy.
	eligible := make([]int, 0, n)
	var eligibleValue Money
	for i := range lines {
		if strategy == StrategyOrderExclusive && lines[i].Discount != nil {
			continue
		}
		eligible = append(eligible, i)
		eligibleValue += pre[i]
	}

	plan.OrderAmount = resolveOrderAmount(order, cartValue)
	if plan.OrderAmount > eligibleValue {
		plan.OrderAmount = eligibleValue
	}
	if plan.OrderAmount <= 0 || len(eligible) == 0 || eligibleValue <= 0 {
		plan.OrderAmount = 0
		return plan, nil
	}

	var allocated Money
	for pos, i := range eligible {
		if pos == len(eligible)-1 {
			plan.OrderShares[i] = plan.OrderAmount - allocated
			break
		}
		share := round(float64(plan.OrderAmount) * float64(pre[i]) / float64(eligibleValue))
		plan.OrderShares[i] = share
		allocated += share
	}
	return plan, nil
}

// resolveOrderAmount converts the order discount control to minor units.
// Percent discounts resolve against the full pre-discount cart value.
func resolveOrderAmount(order Discount, cartValue Money) Money {
	var amount Money
	switch order.Kind {
	case DiscountPercent:
		amount = round(order.Value / 100 * float64(cartValue))
	default:
		amount = round(order.Value)
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// resolveLineDiscount converts a per-line discount to minor units, clamped to
// the line's pre-discount value.
func resolveLineDiscount(it LineItem, preValue Money) Money {
	if it.Discount == nil {
		return 0
	}
	var amount Money
	switch it.Discount.Kind {
	case DiscountPercent:
		amount = round(it.Discount.Value / 100 * float64(preValue))
	default:
		amount = round(it.Discount.Value)
	}
	if amount < 0 {
		return 0
	}
	if amount > preValue {
		return preValue
	}
	return amount
}
