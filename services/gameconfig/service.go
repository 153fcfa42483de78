package gameconfig

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/pkg/rediskey"
	"meeplepoint-rewards/pkg/repository"
	"meeplepoint-rewards/services/prize"
)

type Service struct {
	db    *gorm.DB
	cache *configCache

	games   repository.Repository[GameConfig]
	economy repository.Repository[EconomySettings]
	wheel   repository.Repository[WheelConfig]
}

type ServiceParams struct {
	fx.In
	DB  *gorm.DB
	Cfg *config.Config
}

func NewService(p ServiceParams) *Service {
	ttl := time.Minute
	if p.Cfg != nil && p.Cfg.Rewards.ConfigCacheTTL > 0 {
		ttl = p.Cfg.Rewards.ConfigCacheTTL
	}

	return &Service{
		db:    p.DB,
		cache: newConfigCache(ttl),

		games:   repository.ProvideStore[GameConfig](p.DB),
		economy: repository.ProvideStore[EconomySettings](p.DB),
		wheel:   repository.ProvideStore[WheelConfig](p.DB),
	}
}

// GetGame returns the config for gameID. Unknown games are a configuration
// error: the caller fails closed and awards nothing.
func (s *Service) GetGame(ctx context.Context, gameID string) (*GameConfig, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, errutil.BadRequest("game_id is required", nil)
	}

	v, err := s.cache.load(rediskey.BuildGameConfigKey(gameID), func() (any, error) {
		cfg, err := s.games.FindOne(ctx, &GameConfig{GameID: gameID})
		if err != nil {
			zap.L().Error("failed to query game config", zap.String("game_id", gameID), zap.Error(err))
			return nil, errutil.Internal("failed to load game config", err)
		}
		if cfg == nil {
			return nil, errutil.NotFound("unknown game", nil,
				errutil.WithDetails(errutil.Detail{Field: "game_id", Message: gameID}))
		}
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*GameConfig), nil
}

// ListGames returns the full game pool, used by the rotation job and the
// admin panel.
func (s *Service) ListGames(ctx context.Context) ([]*GameConfig, error) {
	games, err := s.games.Find(ctx, &GameConfig{})
	if err != nil {
		return nil, errutil.Internal("failed to list game configs", err)
	}
	return games, nil
}

// UpsertGame replaces the whole per-game document after validating the
// scratcher drop table. Malformed tables never reach the store.
func (s *Service) UpsertGame(ctx context.Context, cfg *GameConfig) error {
	if err := validateGame(cfg); err != nil {
		return err
	}

	cfg.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(cfg).Error; err != nil {
		zap.L().Error("failed to save game config", zap.String("game_id", cfg.GameID), zap.Error(err))
		return errutil.Internal("failed to save game config", err)
	}

	s.cache.invalidate(rediskey.BuildGameConfigKey(cfg.GameID))
	return nil
}

func validateGame(cfg *GameConfig) error {
	if cfg == nil || strings.TrimSpace(cfg.GameID) == "" {
		return errutil.BadRequest("game_id is required", nil)
	}
	if cfg.BasePoints < 0 || cfg.RetryPenalty < 0 || cfg.MaxRetries < 0 || cfg.FloorPoints < 0 {
		return errutil.ValidationFailed("point parameters must not be negative", nil)
	}

	if cfg.ScratcherEnabled {
		drops, err := cfg.Drops()
		if err != nil {
			return errutil.ValidationFailed("malformed scratcher drop table", err)
		}
		if err := prize.ValidateTable(drops); err != nil {
			return err
		}
	}

	return nil
}

// Economy returns the global economy settings, or nil when not yet
// configured.
func (s *Service) Economy(ctx context.Context) (*EconomySettings, error) {
	v, err := s.cache.load(rediskey.EconomyKey, func() (any, error) {
		eco, err := s.economy.FindOne(ctx, &EconomySettings{})
		if err != nil {
			return nil, errutil.Internal("failed to load economy settings", err)
		}
		return eco, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*EconomySettings), nil
}

// UpdateEconomy replaces the global economy document.
func (s *Service) UpdateEconomy(ctx context.Context, eco *EconomySettings) error {
	if eco.PointsPerCurrencyUnit <= 0 || eco.RedeemRate <= 0 {
		return errutil.ValidationFailed("conversion rates must be positive", nil)
	}
	if eco.MaxRedeemPercent < 0 || eco.MaxRedeemPercent > 100 {
		return errutil.ValidationFailed("max_redeem_percent must be within [0,100]", nil)
	}
	if eco.FirstPlayBonusPoints < 0 {
		return errutil.ValidationFailed("first_play_bonus_points must not be negative", nil)
	}

	eco.ID = 1
	eco.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(eco).Error; err != nil {
		return errutil.Internal("failed to save economy settings", err)
	}

	s.cache.invalidate(rediskey.EconomyKey)
	return nil
}

// Wheel returns the shop wheel drop table, or nil when the wheel is not
// configured.
func (s *Service) Wheel(ctx context.Context) ([]prize.DropRule, error) {
	v, err := s.cache.load(rediskey.WheelKey, func() (any, error) {
		cfg, err := s.wheel.FindOne(ctx, &WheelConfig{})
		if err != nil {
			return nil, errutil.Internal("failed to load wheel config", err)
		}
		if cfg == nil {
			return []prize.DropRule(nil), nil
		}
		drops, err := cfg.DropRules()
		if err != nil {
			return nil, errutil.ValidationFailed("malformed wheel drop table", err)
		}
		return drops, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]prize.DropRule), nil
}

// UpdateWheel replaces the wheel drop table.
func (s *Service) UpdateWheel(ctx context.Context, drops []prize.DropRule) error {
	if err := prize.ValidateTable(drops); err != nil {
		return err
	}

	cfg := &WheelConfig{ID: 1, UpdatedAt: time.Now()}
	if err := cfg.SetDropRules(drops); err != nil {
		return errutil.Internal("failed to encode wheel drops", err)
	}

	if err := s.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return errutil.Internal("failed to save wheel config", err)
	}

	s.cache.invalidate(rediskey.WheelKey)
	return nil
}
