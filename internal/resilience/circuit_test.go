package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khanhERP/laundry-pos/internal/resilience"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.NewBreaker(2, 0.5, 40*time.Millisecond)

	// Two failed provider calls trip the breaker.
	for i := 0; i < 2; i++ {
		require.True(t, breaker.Allow(ctx))
		breaker.Report(ctx, false)
	}
	require.False(t, breaker.Allow(ctx), "open breaker must reject calls")

	// After the cool-off a single probe is let through; its success closes
	// the breaker again.
	time.Sleep(50 * time.Millisecond)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx))
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.NewBreaker(1, 0.5, 30*time.Millisecond)

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.False(t, breaker.Allow(ctx))

	time.Sleep(40 * time.Millisecond)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.False(t, breaker.Allow(ctx), "failed probe must reopen the breaker")
}

func TestBackoffGrowth(t *testing.T) {
	base := 100 * time.Millisecond

	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, 2*base, resilience.Backoff(base, 2, 0))
	require.Equal(t, 4*base, resilience.Backoff(base, 3, 0))

	// Jittered delay stays within +/- 20% of the deterministic value.
	jittered := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, jittered, 2*base-2*base/5)
	require.LessOrEqual(t, jittered, 2*base+2*base/5)
}
