package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stationery-pos/internal/resilience"
)

func transitions(from, to string) float64 {
	return testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("metrics-test", from, to))
}

func TestBreakerCollectorsFollowTransitions(t *testing.T) {
	resilience.BreakerState.Reset()
	resilience.BreakerTransitions.Reset()
	resilience.BreakerOpenedTotal.Reset()

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	b := resilience.NewBreaker(2, 0.5, 30*time.Second).
		WithTarget("metrics-test").
		WithClock(func() time.Time { return now })
	ctx := context.Background()
	state := func() float64 { return testutil.ToFloat64(resilience.BreakerState.WithLabelValues("metrics-test")) }

	// two failures trip it
	for range 2 {
		require.True(t, b.Allow(ctx))
		b.Report(ctx, false)
	}
	require.Equal(t, float64(resilience.Open), state())

	// failed probe reopens
	now = now.Add(31 * time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, float64(resilience.HalfOpen), state())
	b.Report(ctx, false)
	require.Equal(t, float64(resilience.Open), state())

	now = now.Add(31 * time.Second)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, true)
	require.Equal(t, float64(resilience.Closed), state())

	require.Equal(t, 2.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("metrics-test")))
	require.Equal(t, 1.0, transitions("closed", "open"))
	require.Equal(t, 2.0, transitions("open", "half_open"))
	require.Equal(t, 1.0, transitions("half_open", "open"))
	require.Equal(t, 1.0, transitions("half_open", "closed"))
}
