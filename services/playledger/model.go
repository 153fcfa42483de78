package playledger

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// dayFormat is the calendar-day key for the once-per-day gate.
const dayFormat = "2006-01-02"

// PlayRecord is the durable "user U was awarded for game G on day D" fact.
// Created exactly once per (user, game, day) and never mutated; relevance
// expires naturally the next calendar day.
type PlayRecord struct {
	ID            snowflake.ID `gorm:"column:id;primaryKey" json:"-"`
	UserID        string       `gorm:"column:user_id;uniqueIndex:idx_play_once;not null" json:"user_id"`
	GameID        string       `gorm:"column:game_id;uniqueIndex:idx_play_once;not null" json:"game_id"`
	PlayDay       string       `gorm:"column:play_day;uniqueIndex:idx_play_once;not null" json:"play_day"`
	PointsAwarded int64        `gorm:"column:points_awarded;not null" json:"points_awarded"`
	BonusPoints   int64        `gorm:"column:bonus_points" json:"bonus_points"`
	ReferenceCode string       `gorm:"column:reference_code" json:"reference_code,omitempty"`
	AwardedAt     time.Time    `gorm:"column:awarded_at" json:"awarded_at"`
}

// Day renders t as the gate's calendar-day key in loc.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayFormat)
}
