package gotd

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// State is the singleton "game of the day" designation. Rotation and
// manual overrides both write it; awards only ever read it.
type State struct {
	ID       uint      `gorm:"column:id;primaryKey" json:"-"`
	GameID   string    `gorm:"column:game_id" json:"game_id"`
	GameName string    `gorm:"column:game_name" json:"game_name"`
	SetAt    time.Time `gorm:"column:set_at" json:"set_at"`
}

// RotationPolicy is the singleton rotation configuration. Schedule maps
// calendar days ("2006-01-02") to the game ids designated for that day.
type RotationPolicy struct {
	ID           uint           `gorm:"column:id;primaryKey" json:"-"`
	Enabled      bool           `gorm:"column:enabled" json:"enabled"`
	GamesPerDay  int            `gorm:"column:games_per_day;default:1" json:"games_per_day"`
	Schedule     datatypes.JSON `gorm:"column:schedule" json:"schedule"`
	LastRotation time.Time      `gorm:"column:last_rotation" json:"last_rotation"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

// ScheduleMap decodes the rotation schedule.
func (p *RotationPolicy) ScheduleMap() (map[string][]string, error) {
	if len(p.Schedule) == 0 {
		return map[string][]string{}, nil
	}
	var m map[string][]string
	if err := json.Unmarshal(p.Schedule, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetScheduleMap encodes the rotation schedule.
func (p *RotationPolicy) SetScheduleMap(m map[string][]string) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	p.Schedule = datatypes.JSON(raw)
	return nil
}
