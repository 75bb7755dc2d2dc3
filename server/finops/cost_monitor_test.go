package finops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(0))
	require.Equal(t, 1, EstimateTokens(3))
	require.Equal(t, 33, EstimateTokens(100))
}

func TestEstimateGenerationCost(t *testing.T) {
	require.Zero(t, EstimateGenerationCost(0, 0))

	// 1M input tokens at $0.15, 1M output tokens at $0.60.
	cost := EstimateGenerationCost(1_000_000, 1_000_000)
	require.InDelta(t, 0.75, cost, 1e-9)

	// Output tokens cost 4x input tokens.
	require.InDelta(t, 4.0, EstimateGenerationCost(0, 1000)/EstimateGenerationCost(1000, 0), 1e-9)
}

func TestPeriodStart(t *testing.T) {
	now := time.Now()

	daily := periodStart("daily")
	require.True(t, daily.After(now.AddDate(0, 0, -2)))

	weekly := periodStart("weekly")
	require.True(t, weekly.Before(daily))

	monthly := periodStart("monthly")
	require.True(t, monthly.Before(weekly))

	// Unknown periods fall back to daily.
	require.WithinDuration(t, daily, periodStart("eventually"), time.Second)
}
