package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/khanhERP/laundry-pos/internal/lock"
)

func newTestLocker(t *testing.T) lock.Locker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
}

func TestWithLockBlocksSecondHolder(t *testing.T) {
	locker := newTestLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	const key = "checkout:cart:42"
	var mu sync.Mutex
	var order []string
	record := func(who string) {
		mu.Lock()
		order = append(order, who)
		mu.Unlock()
	}

	holding := make(chan struct{})
	release := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		errs <- locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
			record("first")
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	go func() {
		errs <- locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
			record("second")
			return nil
		})
	}()
	close(release)

	for i := 0; i < 2; i++ {
		require.NoError(t, <-errs)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockReleasesOnCallbackError(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	const key = "checkout:cart:7"

	wantErr := context.DeadlineExceeded
	err := locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// The key must be free immediately, not only after the TTL.
	ran := false
	require.NoError(t, locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}
