package gameconfig

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"meeplepoint-rewards/services/prize"
)

// GameConfig is the admin-owned per-game settings document. Writes replace
// the whole document; game sessions only ever read it.
type GameConfig struct {
	GameID           string         `gorm:"column:game_id;primaryKey" json:"game_id"`
	Name             string         `gorm:"column:name;not null" json:"name"`
	BasePoints       int64          `gorm:"column:base_points;not null" json:"base_points"`
	RetryPenalty     int64          `gorm:"column:retry_penalty;not null" json:"retry_penalty"`
	MaxRetries       int64          `gorm:"column:max_retries;not null" json:"max_retries"`
	FloorPoints      int64          `gorm:"column:floor_points;default:5" json:"floor_points"`
	ScratcherEnabled bool           `gorm:"column:scratcher_enabled" json:"scratcher_enabled"`
	ScratcherDrops   datatypes.JSON `gorm:"column:scratcher_drops" json:"scratcher_drops,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

// Drops decodes the scratch-card drop table.
func (g *GameConfig) Drops() ([]prize.DropRule, error) {
	if len(g.ScratcherDrops) == 0 {
		return nil, nil
	}
	var drops []prize.DropRule
	if err := json.Unmarshal(g.ScratcherDrops, &drops); err != nil {
		return nil, err
	}
	return drops, nil
}

// SetDrops encodes the scratch-card drop table.
func (g *GameConfig) SetDrops(drops []prize.DropRule) error {
	if drops == nil {
		g.ScratcherDrops = nil
		return nil
	}
	raw, err := json.Marshal(drops)
	if err != nil {
		return err
	}
	g.ScratcherDrops = datatypes.JSON(raw)
	return nil
}

// EconomySettings is the single global economy parameter document.
type EconomySettings struct {
	ID                    uint      `gorm:"column:id;primaryKey" json:"-"`
	PointsPerCurrencyUnit int64     `gorm:"column:points_per_currency_unit" json:"points_per_currency_unit"`
	RedeemRate            float64   `gorm:"column:redeem_rate" json:"redeem_rate"`
	MaxRedeemPercent      int64     `gorm:"column:max_redeem_percent" json:"max_redeem_percent"`
	FirstPlayBonusPoints  int64     `gorm:"column:first_play_bonus_points" json:"first_play_bonus_points"`
	UpdatedAt             time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// WheelConfig is the admin-owned drop table backing the shop spin wheel.
type WheelConfig struct {
	ID        uint           `gorm:"column:id;primaryKey" json:"-"`
	Drops     datatypes.JSON `gorm:"column:drops" json:"drops"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (w *WheelConfig) DropRules() ([]prize.DropRule, error) {
	if len(w.Drops) == 0 {
		return nil, nil
	}
	var drops []prize.DropRule
	if err := json.Unmarshal(w.Drops, &drops); err != nil {
		return nil, err
	}
	return drops, nil
}

func (w *WheelConfig) SetDropRules(drops []prize.DropRule) error {
	raw, err := json.Marshal(drops)
	if err != nil {
		return err
	}
	w.Drops = datatypes.JSON(raw)
	return nil
}
