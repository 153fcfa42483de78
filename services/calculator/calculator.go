// Package calculator holds the pure award math. Everything here is
// deterministic and side-effect free; the award service owns all state.
package calculator

// Inputs captures the per-session parameters for a point calculation.
// RetryCount is a client hint and gets clamped server-side; nothing the
// client declares reaches the result unvalidated.
type Inputs struct {
	BasePoints     int64
	RetryPenalty   int64
	MaxRetries     int64
	FloorPoints    int64
	RetryCount     int64
	GameOfDay      bool
	TierMultiplier float64
}

// SessionPoints computes the final integer award:
//
//	max(floor, base - penalty*min(retries, maxRetries))
//
// then doubled after the floor clamp when the game is the game of the day,
// then scaled by the tier multiplier with truncation toward zero. The
// truncation direction is a policy decision: rounding never favours the
// player.
func SessionPoints(in Inputs) int64 {
	retries := in.RetryCount
	if retries < 0 {
		retries = 0
	}
	if retries > in.MaxRetries {
		retries = in.MaxRetries
	}

	floor := in.FloorPoints
	if floor < 0 {
		floor = 0
	}

	pts := in.BasePoints - in.RetryPenalty*retries
	if pts < floor {
		pts = floor
	}

	if in.GameOfDay {
		pts *= 2
	}

	// The multiplier is the only non-integer step. Skip the float round-trip
	// entirely at 1.0 so the common case stays exact.
	if in.TierMultiplier > 1.0 {
		pts = int64(float64(pts) * in.TierMultiplier)
	}

	return pts
}

// MaxRedeemableCurrency computes the redemption cap for an order:
//
//	min(orderTotal * maxRedeemPercent/100, userPoints * redeemRate)
//
// in integer currency minor units, truncating both bounds. Checkout must call
// this rather than re-derive it.
func MaxRedeemableCurrency(orderTotal, maxRedeemPercent int64, redeemRate float64, userPoints int64) int64 {
	if orderTotal <= 0 || userPoints <= 0 || maxRedeemPercent <= 0 || redeemRate <= 0 {
		return 0
	}

	byOrder := orderTotal * maxRedeemPercent / 100
	byPoints := int64(float64(userPoints) * redeemRate)

	if byPoints < byOrder {
		return byPoints
	}
	return byOrder
}

// PointsForCurrency converts a redeemed currency amount back to the point
// debit it costs, rounding the debit up so partial points are never given
// away for free.
func PointsForCurrency(amount int64, redeemRate float64) int64 {
	if amount <= 0 || redeemRate <= 0 {
		return 0
	}
	pts := float64(amount) / redeemRate
	n := int64(pts)
	if float64(n) < pts {
		n++
	}
	return n
}
