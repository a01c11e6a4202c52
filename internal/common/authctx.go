package common

import "context"

type ctxKey string

const cashierIDKey ctxKey = "auth/cashier-id"

// WithCashierID stores the authenticated cashier's id on the context.
func WithCashierID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cashierIDKey, id)
}

// CashierID returns the authenticated cashier's id, if any.
func CashierID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cashierIDKey).(string)
	return id, ok
}
