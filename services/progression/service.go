package progression

import (
	"context"
	"sort"
	"time"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/pkg/sequence"
	"meeplepoint-rewards/services/calculator"
	"meeplepoint-rewards/services/gameconfig"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	gamecfg   *gameconfig.Service
	generator sequence.Generator
	tiers     *tierCache
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	GameCfg   *gameconfig.Service
	Generator sequence.Generator
	Cfg       *config.Config
}

func NewService(p ServiceParams) *Service {
	ttl := time.Minute
	if p.Cfg != nil && p.Cfg.Rewards.ConfigCacheTTL > 0 {
		ttl = p.Cfg.Rewards.ConfigCacheTTL
	}
	return &Service{
		db:        p.DB,
		node:      p.Node,
		gamecfg:   p.GameCfg,
		generator: p.Generator,
		tiers:     newTierCache(ttl),
	}
}

// Account returns the user's account, or a zero-valued one when the user
// has never been awarded. A missing row is not an error: every shopper
// has an implicit empty account until their first play.
func (s *Service) Account(ctx context.Context, userID string) (*Account, error) {
	var acct Account
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&acct).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Account{UserID: userID}, nil
		}
		return nil, err
	}
	return &acct, nil
}

// Tiers returns the ladder sorted ascending by MinXP.
func (s *Service) Tiers(ctx context.Context) ([]Tier, error) {
	return s.tiers.load(func() ([]Tier, error) {
		var tiers []Tier
		if err := s.db.WithContext(ctx).Order("min_xp ASC").Find(&tiers).Error; err != nil {
			return nil, err
		}
		return tiers, nil
	})
}

// TierFor resolves the user's current tier from total XP.
func (s *Service) TierFor(ctx context.Context, xp int64) (Tier, error) {
	tiers, err := s.Tiers(ctx)
	if err != nil {
		return Tier{}, err
	}
	return CurrentTier(tiers, xp), nil
}

// ReplaceTiers swaps the whole ladder in one transaction. The ladder must
// be non-empty, start at MinXP 0, strictly increase, and never shrink a
// multiplier below 1.
func (s *Service) ReplaceTiers(ctx context.Context, tiers []Tier) error {
	if err := validateTiers(tiers); err != nil {
		return err
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinXP < tiers[j].MinXP })

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Tier{}).Error; err != nil {
			return err
		}
		for i := range tiers {
			tiers[i].ID = 0
		}
		return tx.Create(&tiers).Error
	})
	if err != nil {
		return errutil.Internal("failed to replace tier ladder", err)
	}

	s.tiers.invalidate()
	return nil
}

func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return errutil.ValidationFailed("tier ladder must not be empty", nil)
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinXP < sorted[j].MinXP })

	if sorted[0].MinXP != 0 {
		return errutil.ValidationFailed("lowest tier must start at min_xp 0", nil)
	}
	for i, t := range sorted {
		if t.Name == "" {
			return errutil.ValidationFailed("tier name must not be empty", nil)
		}
		if t.Multiplier < 1 {
			return errutil.ValidationFailed("tier multiplier must be >= 1", nil)
		}
		if i > 0 && t.MinXP == sorted[i-1].MinXP {
			return errutil.ValidationFailed("tier min_xp values must be strictly increasing", nil)
		}
	}
	return nil
}

// Apply credits points and XP inside the caller's transaction. The first
// award ever for a user creates the account and adds firstPlayBonus on
// top; concurrent first awards race on the primary key, so the create
// goes through ON CONFLICT DO NOTHING and falls back to an increment.
func (s *Service) Apply(ctx context.Context, tx *gorm.DB, userID string, points, xp, firstPlayBonus int64) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	now := time.Now().UTC()

	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&Account{
			UserID:      userID,
			TotalPoints: points + firstPlayBonus,
			TotalXP:     xp,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	err := tx.WithContext(ctx).Model(&Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"total_points": gorm.Expr("total_points + ?", points),
			"total_xp":     gorm.Expr("total_xp + ?", xp),
			"updated_at":   now,
		}).Error
	return false, err
}

// RedeemQuote computes how much of an order the user could pay with
// points right now, without touching the account.
func (s *Service) RedeemQuote(ctx context.Context, userID string, orderTotal int64) (int64, error) {
	if orderTotal <= 0 {
		return 0, errutil.BadRequest("order_total must be positive", nil)
	}
	eco, err := s.gamecfg.Economy(ctx)
	if err != nil {
		return 0, err
	}
	if eco == nil {
		return 0, errutil.ServiceUnavailable("economy settings not configured", nil)
	}
	acct, err := s.Account(ctx, userID)
	if err != nil {
		return 0, err
	}
	return calculator.MaxRedeemableCurrency(orderTotal, eco.MaxRedeemPercent, eco.RedeemRate, acct.TotalPoints), nil
}

type RedeemRequest struct {
	UserID     string `json:"-"`
	OrderTotal int64  `json:"order_total"`
	// Amount is the currency amount to cover with points. Zero means
	// "as much as the cap allows".
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type RedeemResult struct {
	Code          string `json:"code"`
	AppliedAmount int64  `json:"applied_amount"`
	PointsDebited int64  `json:"points_debited"`
	Remaining     int64  `json:"remaining_points"`
}

// Redeem debits points against an order at checkout. The debit is a
// guarded conditional update, so a stale balance read can never push the
// account negative.
func (s *Service) Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	span := trace.SpanFromContext(ctx)
	logFields := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", req.UserID),
	}

	if req.OrderTotal <= 0 {
		return nil, errutil.BadRequest("order_total must be positive", nil)
	}
	if req.Amount < 0 {
		return nil, errutil.BadRequest("amount must not be negative", nil)
	}

	eco, err := s.gamecfg.Economy(ctx)
	if err != nil {
		return nil, err
	}
	if eco == nil {
		return nil, errutil.ServiceUnavailable("economy settings not configured", nil)
	}

	acct, err := s.Account(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	limit := calculator.MaxRedeemableCurrency(req.OrderTotal, eco.MaxRedeemPercent, eco.RedeemRate, acct.TotalPoints)
	applied := req.Amount
	if applied == 0 || applied > limit {
		applied = limit
	}
	if applied <= 0 {
		return nil, errutil.UnprocessableEntity("no redeemable points for this order", nil)
	}

	debit := calculator.PointsForCurrency(applied, eco.RedeemRate)

	code := ""
	if s.generator != nil {
		code, err = s.generator.NextRedemptionCode(ctx)
		if err != nil {
			zap.L().With(logFields...).Warn("failed to reserve redemption code", zap.Error(err))
			code = ""
		}
	}
	if code == "" {
		code = s.node.Generate().String()
	}

	rec := &Redemption{
		ID:            s.node.Generate(),
		Code:          code,
		UserID:        req.UserID,
		OrderTotal:    req.OrderTotal,
		AppliedAmount: applied,
		PointsDebited: debit,
		Currency:      req.Currency,
		CreatedAt:     time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Account{}).
			Where("user_id = ? AND total_points >= ?", req.UserID, debit).
			Updates(map[string]any{
				"total_points":    gorm.Expr("total_points - ?", debit),
				"points_redeemed": gorm.Expr("points_redeemed + ?", debit),
				"updated_at":      time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.UnprocessableEntity("insufficient points", nil)
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}

	acct, err = s.Account(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	zap.L().With(logFields...).Info("redeemed points",
		zap.String("code", rec.Code),
		zap.Int64("points_debited", debit),
		zap.Int64("applied_amount", applied),
	)

	return &RedeemResult{
		Code:          rec.Code,
		AppliedAmount: applied,
		PointsDebited: debit,
		Remaining:     acct.TotalPoints,
	}, nil
}
