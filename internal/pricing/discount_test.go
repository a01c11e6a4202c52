package pricing

import "testing"

func TestPlanDiscountsLastLineAbsorbsRemainder(t *testing.T) {
	// 10000 across three equal lines: 3333 + 3333 + 3334.
	lines := []LineItem{
		{ID: "a", UnitPrice: 1_000, Quantity: 1},
		{ID: "b", UnitPrice: 1_000, Quantity: 1},
		{ID: "c", UnitPrice: 1_000, Quantity: 1},
	}
	plan, err := PlanDiscounts(lines, Discount{Kind: DiscountAmount, Value: 10_000}, StrategyAdditive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Clamped to cart value 3000, then split 1000/1000/1000.
	if plan.OrderAmount != 3_000 {
		t.Fatalf("order amount = %d, want clamp to 3000", plan.OrderAmount)
	}

	lines = []LineItem{
		{ID: "a", UnitPrice: 3_333, Quantity: 1},
		{ID: "b", UnitPrice: 3_333, Quantity: 1},
		{ID: "c", UnitPrice: 3_334, Quantity: 1},
	}
	plan, err = PlanDiscounts(lines, Discount{Kind: DiscountAmount, Value: 1_000}, StrategyAdditive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum Money
	for _, share := range plan.OrderShares {
		sum += share
	}
	if sum != plan.OrderAmount {
		t.Fatalf("shares sum %d != order amount %d", sum, plan.OrderAmount)
	}
	if plan.OrderShares[2] != plan.OrderAmount-plan.OrderShares[0]-plan.OrderShares[1] {
		t.Fatalf("last line does not absorb the remainder: %+v", plan.OrderShares)
	}
}

func TestPlanDiscountsPercentResolvesAgainstCartValue(t *testing.T) {
	lines := []LineItem{
		{ID: "a", UnitPrice: 100_000, Quantity: 2},
		{ID: "b", UnitPrice: 50_000, Quantity: 1},
	}
	plan, err := PlanDiscounts(lines, Discount{Kind: DiscountPercent, Value: 10}, StrategyAdditive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.OrderAmount != 25_000 {
		t.Fatalf("order amount = %d, want 25000", plan.OrderAmount)
	}
	if plan.OrderShares[0] != 20_000 || plan.OrderShares[1] != 5_000 {
		t.Fatalf("shares = %+v, want [20000 5000]", plan.OrderShares)
	}
}

func TestPlanDiscountsStrategies(t *testing.T) {
	lines := []LineItem{
		{ID: "a", UnitPrice: 100_000, Quantity: 1, Discount: &Discount{Kind: DiscountAmount, Value: 5_000}},
		{ID: "b", UnitPrice: 100_000, Quantity: 1},
	}

	additive, err := PlanDiscounts(lines, Discount{Kind: DiscountAmount, Value: 10_000}, StrategyAdditive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if additive.PerItem[0] != 5_000 {
		t.Fatalf("per-item discount = %d, want 5000", additive.PerItem[0])
	}
	if additive.OrderShares[0] != 5_000 || additive.OrderShares[1] != 5_000 {
		t.Fatalf("additive shares = %+v, want even split", additive.OrderShares)
	}

	exclusive, err := PlanDiscounts(lines, Discount{Kind: DiscountAmount, Value: 10_000}, StrategyOrderExclusive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exclusive.OrderShares[0] != 0 {
		t.Fatalf("discounted line received an order share under exclusive strategy: %+v", exclusive.OrderShares)
	}
	if exclusive.OrderShares[1] != 10_000 {
		t.Fatalf("undiscounted line share = %d, want full 10000", exclusive.OrderShares[1])
	}
}

func TestPlanDiscountsExclusiveWithNoEligibleLines(t *testing.T) {
	lines := []LineItem{
		{ID: "a", UnitPrice: 10_000, Quantity: 1, Discount: &Discount{Kind: DiscountPercent, Value: 10}},
	}
	plan, err := PlanDiscounts(lines, Discount{Kind: DiscountAmount, Value: 5_000}, StrategyOrderExclusive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.OrderAmount != 0 {
		t.Fatalf("order amount = %d, want 0 when no line is eligible", plan.OrderAmount)
	}
	if plan.PerItem[0] != 1_000 {
		t.Fatalf("per-item discount = %d, want 1000", plan.PerItem[0])
	}
}

func TestPlanDiscountsPerItemClampedToLineValue(t *testing.T) {
	lines := []LineItem{
		{ID: "a", UnitPrice: 2_000, Quantity: 1, Discount: &Discount{Kind: DiscountAmount, Value: 9_999}},
	}
	plan, err := PlanDiscounts(lines, Discount{}, StrategyAdditive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.PerItem[0] != 2_000 {
		t.Fatalf("per-item discount = %d, want clamp to 2000", plan.PerItem[0])
	}
}

func TestPlanDiscountsUnknownStrategy(t *testing.T) {
	lines := []LineItem{{ID: "a", UnitPrice: 1_000, Quantity: 1}}
	if _, err := PlanDiscounts(lines, Discount{}, Strategy("bogus")); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
