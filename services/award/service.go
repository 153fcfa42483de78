package award

import (
	"context"
	"strconv"
	"time"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/db/pagination"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/pkg/sequence"
	"meeplepoint-rewards/services/calculator"
	"meeplepoint-rewards/services/gameconfig"
	"meeplepoint-rewards/services/gotd"
	"meeplepoint-rewards/services/playledger"
	"meeplepoint-rewards/services/prize"
	"meeplepoint-rewards/services/progression"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var awardsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "rewards_awards_total"},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(awardsTotal)
}

const defaultCommitAttempts = 3

// Service orchestrates the award flow: it is the only writer of play
// records and progression accounts, and the only place where the gate,
// the calculator, the prize resolver and the tier ladder meet.
type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	gamecfg     *gameconfig.Service
	ledger      *playledger.Service
	progression *progression.Service
	gotd        *gotd.Service
	generator   sequence.Generator
	rng         prize.Source
	loc         *time.Location
	attempts    int
}

type ServiceParams struct {
	fx.In
	DB          *gorm.DB
	Node        *snowflake.Node
	GameCfg     *gameconfig.Service
	Ledger      *playledger.Service
	Progression *progression.Service
	Gotd        *gotd.Service
	Generator   sequence.Generator
	Cfg         *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	attempts := defaultCommitAttempts
	loc := time.UTC
	if p.Cfg != nil {
		if p.Cfg.Rewards.AwardRetryAttempts > 0 {
			attempts = p.Cfg.Rewards.AwardRetryAttempts
		}
		if p.Cfg.Rewards.Timezone != "" {
			if l, err := time.LoadLocation(p.Cfg.Rewards.Timezone); err == nil {
				loc = l
			}
		}
	}
	return &Service{
		db:          p.DB,
		node:        p.Node,
		gamecfg:     p.GameCfg,
		ledger:      p.Ledger,
		progression: p.Progression,
		gotd:        p.Gotd,
		generator:   p.Generator,
		rng:         prize.NewSource(time.Now().UnixNano()),
		loc:         loc,
		attempts:    attempts,
	}
}

// Award settles one finished game session. Exactly one play record and
// one account delta commit per user/game/day, or none at all.
func (s *Service) Award(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	span := trace.SpanFromContext(ctx)
	logFields := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", req.UserID),
		zap.String("game_id", req.GameID),
	}

	if req.GameID == WheelGameID {
		awardsTotal.WithLabelValues("rejected").Inc()
		return nil, errutil.BadRequest("unknown game", nil)
	}

	game, err := s.gamecfg.GetGame(ctx, req.GameID)
	if err != nil {
		awardsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	day := playledger.Day(time.Now(), s.loc)

	// Cheap pre-check before any computation. The unique index remains
	// the source of truth; this only short-circuits the common repeat.
	if existing, err := s.ledger.Get(ctx, req.UserID, req.GameID, day); err == nil && existing != nil {
		awardsTotal.WithLabelValues("gated").Inc()
		return nil, gateError(existing)
	}

	gotdActive, err := s.gotd.Active(ctx, req.GameID)
	if err != nil {
		zap.L().With(logFields...).Warn("game of the day lookup failed, awarding without bonus", zap.Error(err))
		gotdActive = false
	}

	acct, err := s.progression.Account(ctx, req.UserID)
	if err != nil {
		awardsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	tier, err := s.progression.TierFor(ctx, acct.TotalXP)
	if err != nil {
		awardsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	points := calculator.SessionPoints(calculator.Inputs{
		BasePoints:     game.BasePoints,
		RetryPenalty:   game.RetryPenalty,
		MaxRetries:     game.MaxRetries,
		FloorPoints:    game.FloorPoints,
		RetryCount:     req.RetryCount,
		GameOfDay:      gotdActive,
		TierMultiplier: tier.Multiplier,
	})

	var scratch *prize.DropRule
	var bonus int64
	if game.ScratcherEnabled {
		// A broken drop table is a configuration error and fails the
		// whole award closed; a degraded base-points payout would hide
		// the corruption from operators.
		drops, err := game.Drops()
		if err != nil {
			awardsTotal.WithLabelValues("error").Inc()
			zap.L().With(logFields...).Error("corrupt scratcher table", zap.Error(err))
			return nil, errutil.Internal("reward configuration error", nil)
		}
		if err := prize.ValidateTable(drops); err != nil {
			awardsTotal.WithLabelValues("error").Inc()
			zap.L().With(logFields...).Error("invalid scratcher table", zap.Error(err))
			return nil, errutil.Internal("reward configuration error", nil)
		}
		drop := prize.Resolve(drops, s.rng.Float64())
		scratch = &drop
		bonus = drop.Points
	}

	firstPlayBonus := int64(0)
	eco, err := s.gamecfg.Economy(ctx)
	if err != nil {
		zap.L().With(logFields...).Warn("economy lookup failed, skipping first play bonus", zap.Error(err))
	} else if eco != nil {
		firstPlayBonus = eco.FirstPlayBonusPoints
	}

	rec := &playledger.PlayRecord{
		UserID:        req.UserID,
		GameID:        req.GameID,
		PlayDay:       day,
		PointsAwarded: points,
		BonusPoints:   bonus,
		ReferenceCode: s.referenceCode(ctx),
	}

	created, err := s.commit(ctx, rec, points+bonus, points, firstPlayBonus)
	if err != nil {
		return nil, err
	}

	result := &AwardResult{
		Success:        true,
		Code:           rec.ReferenceCode,
		AwardedPoints:  points,
		BonusPoints:    bonus,
		GameOfDay:      gotdActive,
		TierMultiplier: tier.Multiplier,
		Scratcher:      scratch,
		Message:        "points awarded",
	}
	if created {
		result.FirstPlayBonus = firstPlayBonus
	}

	if acct, err := s.progression.Account(ctx, req.UserID); err == nil {
		result.TotalPoints = acct.TotalPoints
	}

	awardsTotal.WithLabelValues("awarded").Inc()
	zap.L().With(logFields...).Info("awarded points",
		zap.Int64("points", points),
		zap.Int64("bonus", bonus),
		zap.Bool("game_of_day", gotdActive),
		zap.Float64("tier_multiplier", tier.Multiplier),
	)
	return result, nil
}

// Spin runs the shop wheel. It shares the once-per-day gate with game
// awards through the reserved wheel slot in the play ledger.
func (s *Service) Spin(ctx context.Context, userID string) (*SpinResult, error) {
	drops, err := s.gamecfg.Wheel(ctx)
	if err != nil {
		return nil, err
	}
	if len(drops) == 0 {
		return nil, errutil.ServiceUnavailable("wheel is not configured", nil)
	}

	day := playledger.Day(time.Now(), s.loc)
	if existing, err := s.ledger.Get(ctx, userID, WheelGameID, day); err == nil && existing != nil {
		awardsTotal.WithLabelValues("gated").Inc()
		return nil, gateError(existing)
	}

	drop := prize.Resolve(drops, s.rng.Float64())

	firstPlayBonus := int64(0)
	eco, err := s.gamecfg.Economy(ctx)
	if err != nil {
		zap.L().Warn("economy lookup failed, skipping first play bonus",
			zap.String("user_id", userID), zap.Error(err))
	} else if eco != nil {
		firstPlayBonus = eco.FirstPlayBonusPoints
	}

	rec := &playledger.PlayRecord{
		UserID:        userID,
		GameID:        WheelGameID,
		PlayDay:       day,
		PointsAwarded: drop.Points,
		ReferenceCode: s.referenceCode(ctx),
	}

	// Wheel points carry no XP; the ladder only moves through play.
	if _, err := s.commit(ctx, rec, drop.Points, 0, firstPlayBonus); err != nil {
		return nil, err
	}

	result := &SpinResult{
		Success: true,
		Code:    rec.ReferenceCode,
		Drop:    drop,
		Message: "wheel spun",
	}
	if acct, err := s.progression.Account(ctx, userID); err == nil {
		result.TotalPoints = acct.TotalPoints
	}

	awardsTotal.WithLabelValues("awarded").Inc()
	return result, nil
}

// History lists a user's recent awards, newest first.
func (s *Service) History(ctx context.Context, userID string, page pagination.Pagination) ([]playledger.PlayRecord, *pagination.PageInfo, error) {
	return s.ledger.History(ctx, userID, page)
}

// commit runs the atomic gate-and-credit transaction with bounded retry
// on transient store errors. A lost gate is final and never retried.
func (s *Service) commit(ctx context.Context, rec *playledger.PlayRecord, points, xp, firstPlayBonus int64) (bool, error) {
	var created bool
	var lastErr error

	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, errutil.Timeout("award commit cancelled", ctx.Err())
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}

		var gated *playledger.PlayRecord
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			won, existing, err := s.ledger.Mark(ctx, tx, rec)
			if err != nil {
				return err
			}
			if !won {
				gated = existing
				return nil
			}
			created, err = s.progression.Apply(ctx, tx, rec.UserID, points, xp, firstPlayBonus)
			return err
		})
		if err == nil {
			if gated != nil {
				awardsTotal.WithLabelValues("gated").Inc()
				return false, gateError(gated)
			}
			return created, nil
		}

		lastErr = err
		zap.L().Warn("award commit attempt failed",
			zap.Int("attempt", attempt+1),
			zap.String("user_id", rec.UserID),
			zap.String("game_id", rec.GameID),
			zap.Error(err),
		)
	}

	awardsTotal.WithLabelValues("error").Inc()
	return false, errutil.ServiceUnavailable("award could not be committed", lastErr)
}

func (s *Service) referenceCode(ctx context.Context) string {
	if s.generator != nil {
		if code, err := s.generator.NextAwardCode(ctx); err == nil {
			return code
		}
	}
	return s.node.Generate().String()
}

func gateError(existing *playledger.PlayRecord) error {
	return errutil.Conflict("already awarded for this game today", nil,
		errutil.WithDetails(
			errutil.Detail{Field: "game_id", Message: existing.GameID},
			errutil.Detail{Field: "play_day", Message: existing.PlayDay},
			errutil.Detail{Field: "awarded_points", Message: strconv.FormatInt(existing.PointsAwarded+existing.BonusPoints, 10)},
		),
	)
}
