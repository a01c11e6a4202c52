package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	records map[string]CashierRecord
}

func (m memStore) GetCashierByUsername(_ context.Context, username string) (CashierRecord, error) {
	record, ok := m.records[username]
	if !ok {
		return CashierRecord{}, ErrCashierNotFound
	}
	return record, nil
}

func newTestAuth(t *testing.T) *Service {
	t.Helper()
	hash, err := argon2id.CreateHash("hunter22", argon2id.DefaultParams)
	require.NoError(t, err)
	svc, err := NewService(Config{
		Store: memStore{records: map[string]CashierRecord{
			"linh": {
				Cashier:      Cashier{ID: "c1", Name: "Linh", Username: "linh", Roles: []string{"cashier"}},
				PasswordHash: hash,
				Active:       true,
			},
			"dormant": {
				Cashier:      Cashier{ID: "c2", Username: "dormant"},
				PasswordHash: hash,
			},
		}},
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginAndParseRoundTrip(t *testing.T) {
	svc := newTestAuth(t)

	result, err := svc.Login(context.Background(), "Linh", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "c1", result.Cashier.ID)
	require.NotEmpty(t, result.AccessToken)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "c1", subject)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestAuth(t)
	_, err := svc.Login(context.Background(), "linh", "wrong")
	require.Error(t, err)
}

func TestLoginInactiveCashier(t *testing.T) {
	svc := newTestAuth(t)
	_, err := svc.Login(context.Background(), "dormant", "hunter22")
	require.Error(t, err)
}

func TestParseExpiredToken(t *testing.T) {
	svc := newTestAuth(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return base })

	result, err := svc.Login(context.Background(), "linh", "hunter22")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return base.Add(2 * time.Hour) })
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseGarbageToken(t *testing.T) {
	svc := newTestAuth(t)
	_, err := svc.ParseAccessToken("not-a-token")
	require.Error(t, err)
}
