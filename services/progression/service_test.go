package progression

import (
	"context"
	"fmt"
	"testing"

	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/services/gameconfig"
	"meeplepoint-rewards/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeGenerator struct {
	n int
}

func (g *fakeGenerator) NextAwardCode(ctx context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("AWD-TEST-%03d", g.n), nil
}

func (g *fakeGenerator) NextRedemptionCode(ctx context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("RDM-TEST-%03d", g.n), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t,
		&Account{}, &Tier{}, &Redemption{},
		&gameconfig.GameConfig{}, &gameconfig.EconomySettings{}, &gameconfig.WheelConfig{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	gamecfg := gameconfig.NewService(gameconfig.ServiceParams{DB: db})
	return NewService(ServiceParams{
		DB:        db,
		Node:      node,
		GameCfg:   gamecfg,
		Generator: &fakeGenerator{},
	})
}

func seedEconomy(t *testing.T, svc *Service) {
	t.Helper()
	err := svc.gamecfg.UpdateEconomy(context.Background(), &gameconfig.EconomySettings{
		PointsPerCurrencyUnit: 1,
		RedeemRate:            0.5,
		MaxRedeemPercent:      50,
		FirstPlayBonusPoints:  25,
	})
	require.NoError(t, err)
}

func TestCurrentTierMonotone(t *testing.T) {
	tiers := []Tier{
		{Name: "Pawn", MinXP: 0, Multiplier: 1.0},
		{Name: "Knight", MinXP: 500, Multiplier: 1.1},
		{Name: "Rook", MinXP: 2000, Multiplier: 1.25},
	}

	require.Equal(t, "Pawn", CurrentTier(tiers, 0).Name)
	require.Equal(t, "Pawn", CurrentTier(tiers, 499).Name)
	require.Equal(t, "Knight", CurrentTier(tiers, 500).Name)
	require.Equal(t, "Rook", CurrentTier(tiers, 2000).Name)
	require.Equal(t, "Rook", CurrentTier(tiers, 1<<40).Name)

	// Higher XP never maps below a lower XP's tier.
	prev := int64(-1)
	for _, xp := range []int64{0, 100, 499, 500, 1999, 2000, 9999} {
		cur := CurrentTier(tiers, xp).MinXP
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestHasPerkCumulative(t *testing.T) {
	require.True(t, HasPerk(2000, 500))
	require.True(t, HasPerk(500, 500))
	require.False(t, HasPerk(499, 500))
}

func TestReplaceTiersValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for name, tiers := range map[string][]Tier{
		"empty":            {},
		"missing zero":     {{Name: "Knight", MinXP: 500, Multiplier: 1.1}},
		"duplicate min_xp": {{Name: "Pawn", MinXP: 0, Multiplier: 1}, {Name: "Pawn2", MinXP: 0, Multiplier: 1}},
		"multiplier below": {{Name: "Pawn", MinXP: 0, Multiplier: 0.5}},
	} {
		err := svc.ReplaceTiers(ctx, tiers)
		require.Error(t, err, name)
		require.Equal(t, errutil.StatusValidationFailed, testutil.ErrStatus(t, err), name)
	}

	err := svc.ReplaceTiers(ctx, []Tier{
		{Name: "Rook", MinXP: 2000, Multiplier: 1.25},
		{Name: "Pawn", MinXP: 0, Multiplier: 1},
	})
	require.NoError(t, err)

	tiers, err := svc.Tiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	require.Equal(t, "Pawn", tiers[0].Name)
}

func TestApplyCreatesThenIncrements(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Apply(ctx, nil, "u1", 100, 100, 25)
	require.NoError(t, err)
	require.True(t, created)

	acct, err := svc.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(125), acct.TotalPoints)
	require.Equal(t, int64(100), acct.TotalXP)

	created, err = svc.Apply(ctx, nil, "u1", 50, 50, 25)
	require.NoError(t, err)
	require.False(t, created)

	acct, err = svc.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(175), acct.TotalPoints, "bonus applies only on the first award")
	require.Equal(t, int64(150), acct.TotalXP)
}

func TestAccountMissingIsZeroValued(t *testing.T) {
	svc := newTestService(t)

	acct, err := svc.Account(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, "ghost", acct.UserID)
	require.Zero(t, acct.TotalPoints)
	require.Zero(t, acct.TotalXP)
}

func TestRedeemCapAndDebit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedEconomy(t, svc)

	_, err := svc.Apply(ctx, nil, "u1", 3000, 0, 0)
	require.NoError(t, err)

	// 1000 * 50% = 500 vs 3000 * 0.5 = 1500, the order cap wins.
	max, err := svc.RedeemQuote(ctx, "u1", 1000)
	require.NoError(t, err)
	require.Equal(t, int64(500), max)

	res, err := svc.Redeem(ctx, RedeemRequest{UserID: "u1", OrderTotal: 1000, Currency: "USD"})
	require.NoError(t, err)
	require.Equal(t, int64(500), res.AppliedAmount)
	require.Equal(t, int64(1000), res.PointsDebited)
	require.Equal(t, int64(2000), res.Remaining)
	require.NotEmpty(t, res.Code)

	acct, err := svc.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2000), acct.TotalPoints)
	require.Equal(t, int64(1000), acct.PointsRedeemed)
}

func TestRedeemPartialAmount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedEconomy(t, svc)

	_, err := svc.Apply(ctx, nil, "u1", 3000, 0, 0)
	require.NoError(t, err)

	res, err := svc.Redeem(ctx, RedeemRequest{UserID: "u1", OrderTotal: 1000, Amount: 100})
	require.NoError(t, err)
	require.Equal(t, int64(100), res.AppliedAmount)
	require.Equal(t, int64(200), res.PointsDebited)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedEconomy(t, svc)

	_, err := svc.Redeem(ctx, RedeemRequest{UserID: "broke", OrderTotal: 1000})
	require.Error(t, err)
	require.Equal(t, errutil.StatusUnprocessableEntity, testutil.ErrStatus(t, err))

	acct, err := svc.Account(ctx, "broke")
	require.NoError(t, err)
	require.Zero(t, acct.TotalPoints)
}
