package award

import (
	"meeplepoint-rewards/services/prize"
)

// WheelGameID is the reserved ledger slot for the shop spin wheel. It
// shares the once-per-day gate with real games but never appears in the
// game catalogue.
const WheelGameID = "wheel"

// AwardRequest is the end-of-session claim. RetryCount and DeclaredLevel
// come from the client and are hints only; nothing here is trusted past
// server-side clamping.
type AwardRequest struct {
	UserID        string `json:"-"`
	GameID        string `json:"game_id"`
	RetryCount    int64  `json:"retry_count"`
	DeclaredLevel int64  `json:"declared_level,omitempty"`
}

// AwardResult reports one committed award.
type AwardResult struct {
	Success        bool            `json:"success"`
	Code           string          `json:"code,omitempty"`
	AwardedPoints  int64           `json:"awarded_points"`
	BonusPoints    int64           `json:"bonus_points"`
	FirstPlayBonus int64           `json:"first_play_bonus,omitempty"`
	GameOfDay      bool            `json:"game_of_day"`
	TierMultiplier float64         `json:"tier_multiplier,omitempty"`
	Scratcher      *prize.DropRule `json:"scratcher,omitempty"`
	TotalPoints    int64           `json:"total_points"`
	Message        string          `json:"message"`
}

// SpinResult reports one committed wheel spin.
type SpinResult struct {
	Success     bool           `json:"success"`
	Code        string         `json:"code,omitempty"`
	Drop        prize.DropRule `json:"drop"`
	TotalPoints int64          `json:"total_points"`
	Message     string         `json:"message"`
}
