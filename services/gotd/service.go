package gotd

import (
	"context"
	"encoding/json"
	"time"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/pkg/rediskey"
	"meeplepoint-rewards/services/gameconfig"
	"meeplepoint-rewards/services/prize"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const singletonID = 1

// Service owns the game-of-the-day designation. Reads tolerate a short
// staleness window through the redis cache; only the play gate must be
// exact, and that never goes through here.
type Service struct {
	db      *gorm.DB
	rdb     *redis.Client
	gamecfg *gameconfig.Service
	rng     prize.Source
	loc     *time.Location
	ttl     time.Duration
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Redis   *redis.Client `optional:"true"`
	GameCfg *gameconfig.Service
	Cfg     *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	ttl := time.Minute
	loc := time.UTC
	if p.Cfg != nil {
		if p.Cfg.Rewards.GotdCacheTTL > 0 {
			ttl = p.Cfg.Rewards.GotdCacheTTL
		}
		if p.Cfg.Rewards.Timezone != "" {
			if l, err := time.LoadLocation(p.Cfg.Rewards.Timezone); err == nil {
				loc = l
			} else {
				zap.L().Warn("invalid rewards timezone, using UTC", zap.String("timezone", p.Cfg.Rewards.Timezone))
			}
		}
	}
	return &Service{
		db:      p.DB,
		rdb:     p.Redis,
		gamecfg: p.GameCfg,
		rng:     prize.NewSource(time.Now().UnixNano()),
		loc:     loc,
		ttl:     ttl,
	}
}

// Current returns today's designation, or nil when none is set. An unset
// designation is not an error; the 2x bonus simply never applies.
func (s *Service) Current(ctx context.Context) (*State, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, rediskey.GotdKey).Bytes()
		if err == nil {
			var st State
			if err := json.Unmarshal(raw, &st); err == nil {
				return &st, nil
			}
		} else if err != redis.Nil {
			zap.L().Warn("gotd cache read failed", zap.Error(err))
		}
	}

	var st State
	err := s.db.WithContext(ctx).First(&st, singletonID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	s.cache(ctx, &st)
	return &st, nil
}

// Active reports whether gameID carries today's 2x bonus. The designation
// only counts on the calendar day it was set.
func (s *Service) Active(ctx context.Context, gameID string) (bool, error) {
	st, err := s.Current(ctx)
	if err != nil {
		return false, err
	}
	if st == nil || st.GameID != gameID {
		return false, nil
	}
	return s.day(st.SetAt) == s.day(time.Now()), nil
}

// SetManual replaces the designation without touching the rotation
// schedule.
func (s *Service) SetManual(ctx context.Context, gameID string) (*State, error) {
	game, err := s.gamecfg.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	st := &State{
		ID:       singletonID,
		GameID:   game.GameID,
		GameName: game.Name,
		SetAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Save(st).Error; err != nil {
		return nil, errutil.Internal("failed to save game of the day", err)
	}

	s.invalidate(ctx)
	s.cache(ctx, st)

	zap.L().Info("game of the day set manually", zap.String("game_id", st.GameID))
	return st, nil
}

// Policy returns the rotation policy, or a disabled default when none is
// stored yet.
func (s *Service) Policy(ctx context.Context) (*RotationPolicy, error) {
	var p RotationPolicy
	err := s.db.WithContext(ctx).First(&p, singletonID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &RotationPolicy{ID: singletonID, GamesPerDay: 1}, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpdatePolicy replaces the rotation policy document.
func (s *Service) UpdatePolicy(ctx context.Context, p *RotationPolicy) error {
	if p.GamesPerDay < 1 {
		return errutil.ValidationFailed("games_per_day must be at least 1", nil)
	}
	if _, err := p.ScheduleMap(); err != nil {
		return errutil.ValidationFailed("schedule must map days to game id lists", err)
	}

	p.ID = singletonID
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return errutil.Internal("failed to save rotation policy", err)
	}
	return nil
}

// Rotate extends the schedule by one day and refreshes the designation
// from today's entry. With rotation disabled or an empty game pool it is
// a no-op.
func (s *Service) Rotate(ctx context.Context) error {
	policy, err := s.Policy(ctx)
	if err != nil {
		return err
	}
	if !policy.Enabled {
		zap.L().Debug("rotation disabled, skipping")
		return nil
	}

	games, err := s.gamecfg.ListGames(ctx)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		zap.L().Warn("rotation skipped, game pool is empty")
		return nil
	}

	pool := make([]string, 0, len(games))
	for _, g := range games {
		pool = append(pool, g.GameID)
	}

	schedule, err := policy.ScheduleMap()
	if err != nil {
		return errutil.Internal("corrupt rotation schedule", err)
	}

	day := s.day(time.Now())
	for {
		if _, ok := schedule[day]; !ok {
			break
		}
		d, _ := time.ParseInLocation("2006-01-02", day, s.loc)
		day = s.day(d.AddDate(0, 0, 1))
	}

	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	n := policy.GamesPerDay
	if n > len(pool) {
		n = len(pool)
	}
	schedule[day] = pool[:n]

	if err := policy.SetScheduleMap(schedule); err != nil {
		return errutil.Internal("failed to encode rotation schedule", err)
	}
	policy.LastRotation = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(policy).Error; err != nil {
		return errutil.Internal("failed to save rotation policy", err)
	}

	today := s.day(time.Now())
	if picks, ok := schedule[today]; ok && len(picks) > 0 {
		if _, err := s.SetManual(ctx, picks[0]); err != nil {
			return err
		}
	}

	zap.L().Info("rotated game of the day schedule",
		zap.String("day", day),
		zap.Strings("games", schedule[day]),
	)
	return nil
}

func (s *Service) day(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

func (s *Service) cache(ctx context.Context, st *State) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, rediskey.GotdKey, raw, s.ttl).Err(); err != nil {
		zap.L().Warn("gotd cache write failed", zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, rediskey.GotdKey).Err(); err != nil {
		zap.L().Warn("gotd cache invalidation failed", zap.Error(err))
	}
}
