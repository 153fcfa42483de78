package calculator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionPointsRetryFloor(t *testing.T) {
	in := Inputs{
		BasePoints:     100,
		RetryPenalty:   30,
		MaxRetries:     3,
		FloorPoints:    5,
		TierMultiplier: 1.0,
	}

	in.RetryCount = 0
	require.Equal(t, int64(100), SessionPoints(in))

	in.RetryCount = 2
	require.Equal(t, int64(40), SessionPoints(in))

	// At or beyond maxRetries the result pins to the floor, never negative.
	for _, retries := range []int64{3, 4, 10, 1000} {
		in.RetryCount = retries
		require.Equal(t, int64(5), SessionPoints(in))
	}

	// Negative retry counts are client garbage and clamp to zero.
	in.RetryCount = -7
	require.Equal(t, int64(100), SessionPoints(in))
}

func TestSessionPointsGameOfDayAndTier(t *testing.T) {
	// Worked example: base 100, penalty 5, 2 retries, game-of-day, tier 1.25
	// => floor((100-10) * 2 * 1.25) == 225.
	got := SessionPoints(Inputs{
		BasePoints:     100,
		RetryPenalty:   5,
		MaxRetries:     5,
		FloorPoints:    5,
		RetryCount:     2,
		GameOfDay:      true,
		TierMultiplier: 1.25,
	})
	require.Equal(t, int64(225), got)
}

func TestSessionPointsDoubleAfterFloorClamp(t *testing.T) {
	// Penalties push below the floor; the 2x applies to the clamped value.
	got := SessionPoints(Inputs{
		BasePoints:     20,
		RetryPenalty:   50,
		MaxRetries:     1,
		FloorPoints:    5,
		RetryCount:     9,
		GameOfDay:      true,
		TierMultiplier: 1.0,
	})
	require.Equal(t, int64(10), got)
}

func TestSessionPointsMultiplierTruncates(t *testing.T) {
	// 7 * 1.5 = 10.5, truncated to 10.
	got := SessionPoints(Inputs{
		BasePoints:     7,
		MaxRetries:     0,
		FloorPoints:    1,
		TierMultiplier: 1.5,
	})
	require.Equal(t, int64(10), got)
}

func TestMaxRedeemableCurrency(t *testing.T) {
	// Order total 1000, max 50%, rate 0.5, 3000 points
	// => min(500, 1500) == 500.
	require.Equal(t, int64(500), MaxRedeemableCurrency(1000, 50, 0.5, 3000))

	// Point balance is the binding constraint.
	require.Equal(t, int64(100), MaxRedeemableCurrency(1000, 50, 0.5, 200))

	require.Equal(t, int64(0), MaxRedeemableCurrency(0, 50, 0.5, 3000))
	require.Equal(t, int64(0), MaxRedeemableCurrency(1000, 50, 0.5, 0))
	require.Equal(t, int64(0), MaxRedeemableCurrency(1000, 0, 0.5, 3000))
}

func TestPointsForCurrency(t *testing.T) {
	require.Equal(t, int64(1000), PointsForCurrency(500, 0.5))
	// Fractional debits round up.
	require.Equal(t, int64(334), PointsForCurrency(100, 0.3))
	require.Equal(t, int64(0), PointsForCurrency(0, 0.5))
}
