package progression

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Account is the per-user points and XP ledger head. TotalXP only ever
// grows; TotalPoints moves both ways (awards credit, redemptions debit).
type Account struct {
	UserID         string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	TotalPoints    int64     `gorm:"column:total_points;not null" json:"total_points"`
	TotalXP        int64     `gorm:"column:total_xp;not null" json:"total_xp"`
	PointsRedeemed int64     `gorm:"column:points_redeemed;not null" json:"points_redeemed"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Tier is one rung of the progression ladder. Rows are kept with MinXP
// strictly increasing and the first rung pinned at MinXP 0, so every XP
// value maps to exactly one tier.
type Tier struct {
	ID          uint    `gorm:"column:id;primaryKey" json:"-"`
	Name        string  `gorm:"column:name;not null" json:"name"`
	MinXP       int64   `gorm:"column:min_xp;not null;uniqueIndex" json:"min_xp"`
	Multiplier  float64 `gorm:"column:multiplier;default:1" json:"multiplier"`
	Perk        string  `gorm:"column:perk" json:"perk,omitempty"`
	UnlockPrice int64   `gorm:"column:unlock_price" json:"unlock_price,omitempty"`
	Badge       string  `gorm:"column:badge" json:"badge,omitempty"`
}

// Redemption records one points-for-currency debit at checkout.
type Redemption struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey" json:"-"`
	Code           string       `gorm:"column:code;uniqueIndex" json:"code"`
	UserID         string       `gorm:"column:user_id;index;not null" json:"user_id"`
	OrderTotal     int64        `gorm:"column:order_total;not null" json:"order_total"`
	AppliedAmount  int64        `gorm:"column:applied_amount;not null" json:"applied_amount"`
	PointsDebited  int64        `gorm:"column:points_debited;not null" json:"points_debited"`
	Currency       string       `gorm:"column:currency" json:"currency"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
}

// CurrentTier returns the highest tier whose MinXP does not exceed xp.
// tiers must be sorted ascending by MinXP with the first rung at 0.
func CurrentTier(tiers []Tier, xp int64) Tier {
	var cur Tier
	for _, t := range tiers {
		if t.MinXP > xp {
			break
		}
		cur = t
	}
	return cur
}

// HasPerk reports whether xp clears the given perk threshold. Perks are
// cumulative: reaching a higher tier never loses a lower tier's perks.
func HasPerk(xp, requiredMinXP int64) bool {
	return xp >= requiredMinXP
}
