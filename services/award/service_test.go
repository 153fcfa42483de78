package award

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/services/gameconfig"
	"meeplepoint-rewards/services/gotd"
	"meeplepoint-rewards/services/playledger"
	"meeplepoint-rewards/services/prize"
	"meeplepoint-rewards/services/progression"
	"meeplepoint-rewards/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeGenerator struct {
	n int64
}

func (g *fakeGenerator) NextAwardCode(ctx context.Context) (string, error) {
	return fmt.Sprintf("AWD-TEST-%03d", atomic.AddInt64(&g.n, 1)), nil
}

func (g *fakeGenerator) NextRedemptionCode(ctx context.Context) (string, error) {
	return fmt.Sprintf("RDM-TEST-%03d", atomic.AddInt64(&g.n, 1)), nil
}

type stack struct {
	db          *gorm.DB
	award       *Service
	gamecfg     *gameconfig.Service
	progression *progression.Service
	gotd        *gotd.Service
}

func newTestStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.NewTestDB(t,
		&gameconfig.GameConfig{}, &gameconfig.EconomySettings{}, &gameconfig.WheelConfig{},
		&playledger.PlayRecord{},
		&progression.Account{}, &progression.Tier{}, &progression.Redemption{},
		&gotd.State{}, &gotd.RotationPolicy{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	gen := &fakeGenerator{}
	gamecfg := gameconfig.NewService(gameconfig.ServiceParams{DB: db})
	ledger := playledger.NewService(playledger.ServiceParams{DB: db, Node: node})
	prog := progression.NewService(progression.ServiceParams{DB: db, Node: node, GameCfg: gamecfg, Generator: gen})
	gotdSvc := gotd.NewService(gotd.ServiceParams{DB: db, GameCfg: gamecfg})

	awardSvc := NewService(ServiceParams{
		DB:          db,
		Node:        node,
		GameCfg:     gamecfg,
		Ledger:      ledger,
		Progression: prog,
		Gotd:        gotdSvc,
		Generator:   gen,
	})

	return &stack{db: db, award: awardSvc, gamecfg: gamecfg, progression: prog, gotd: gotdSvc}
}

func (s *stack) seedGame(t *testing.T, cfg gameconfig.GameConfig) {
	t.Helper()
	require.NoError(t, s.gamecfg.UpsertGame(context.Background(), &cfg))
}

func (s *stack) seedEconomy(t *testing.T, firstPlayBonus int64) {
	t.Helper()
	err := s.gamecfg.UpdateEconomy(context.Background(), &gameconfig.EconomySettings{
		PointsPerCurrencyUnit: 1,
		RedeemRate:            0.5,
		MaxRedeemPercent:      50,
		FirstPlayBonusPoints:  firstPlayBonus,
	})
	require.NoError(t, err)
}

func TestAwardUnknownGameFailsClosed(t *testing.T) {
	s := newTestStack(t)

	_, err := s.award.Award(context.Background(), AwardRequest{UserID: "u1", GameID: "no-such-game"})
	require.Error(t, err)
	require.Equal(t, errutil.StatusNotFound, testutil.ErrStatus(t, err))

	// The wheel slot is reserved and never awardable as a game.
	_, err = s.award.Award(context.Background(), AwardRequest{UserID: "u1", GameID: WheelGameID})
	require.Error(t, err)
	require.Equal(t, errutil.StatusBadRequest, testutil.ErrStatus(t, err))
}

func TestAwardHappyPathWithFirstPlayBonus(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "sudoku", Name: "Sudoku", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3, FloorPoints: 5})
	s.seedEconomy(t, 25)

	res, err := s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "sudoku", RetryCount: 2})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, int64(80), res.AwardedPoints)
	require.Equal(t, int64(25), res.FirstPlayBonus)
	require.Equal(t, int64(105), res.TotalPoints)
	require.NotEmpty(t, res.Code)

	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(105), acct.TotalPoints)
	require.Equal(t, int64(80), acct.TotalXP)
}

func TestAwardGatedOnSecondCall(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "sudoku", Name: "Sudoku", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3})

	_, err := s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "sudoku"})
	require.NoError(t, err)

	_, err = s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "sudoku", RetryCount: 1})
	require.Error(t, err)
	require.Equal(t, errutil.StatusConflict, testutil.ErrStatus(t, err))

	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(100), acct.TotalPoints, "no second credit")
}

func TestAwardRetriesClampedServerSide(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "snake", Name: "Snake", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3, FloorPoints: 5})

	res, err := s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "snake", RetryCount: 1000})
	require.NoError(t, err)
	require.Equal(t, int64(70), res.AwardedPoints, "penalty stops at max_retries")
}

func TestAwardGotdAndTierMultiplier(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "chess", Name: "Chess", BasePoints: 100, RetryPenalty: 5, MaxRetries: 3, FloorPoints: 5})

	require.NoError(t, s.progression.ReplaceTiers(ctx, []progression.Tier{
		{Name: "Pawn", MinXP: 0, Multiplier: 1.0},
		{Name: "Rook", MinXP: 2000, Multiplier: 1.25},
	}))
	_, err := s.progression.Apply(ctx, nil, "u1", 0, 2000, 0)
	require.NoError(t, err)

	_, err = s.gotd.SetManual(ctx, "chess")
	require.NoError(t, err)

	// floor((100 - 5*2) * 2 * 1.25) == 225
	res, err := s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "chess", RetryCount: 2})
	require.NoError(t, err)
	require.True(t, res.GameOfDay)
	require.Equal(t, 1.25, res.TierMultiplier)
	require.Equal(t, int64(225), res.AwardedPoints)
}

func TestAwardScratcherBonusIsAdditive(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	cfg := gameconfig.GameConfig{GameID: "trivia", Name: "Trivia", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3, ScratcherEnabled: true}
	require.NoError(t, cfg.SetDrops([]prize.DropRule{{Probability: 1.0, Points: 50, Kind: prize.DropPoints, Label: "50 bonus"}}))
	s.seedGame(t, cfg)

	res, err := s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "trivia"})
	require.NoError(t, err)
	require.Equal(t, int64(100), res.AwardedPoints)
	require.Equal(t, int64(50), res.BonusPoints)
	require.NotNil(t, res.Scratcher)

	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(150), acct.TotalPoints)
	require.Equal(t, int64(100), acct.TotalXP, "scratcher bonus carries no XP")
}

func TestAwardFailsClosedOnCorruptScratcherTable(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "trivia", Name: "Trivia", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3})

	// Corrupt the stored document directly, as at-rest damage would;
	// the write path validates, so only the read path can catch this.
	err := s.db.Model(&gameconfig.GameConfig{}).
		Where("game_id = ?", "trivia").
		Updates(map[string]any{"scratcher_enabled": true, "scratcher_drops": `{not json`}).Error
	require.NoError(t, err)

	_, err = s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "trivia"})
	require.Error(t, err)
	require.Equal(t, errutil.StatusInternal, testutil.ErrStatus(t, err))

	// No points move and the day stays open for a fixed config.
	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, acct.TotalPoints)
}

func TestAwardFailsClosedOnInvalidScratcherTable(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	// One game per case keeps the config cache cold for each read.
	for game, drops := range map[string]string{
		"trivia": `[]`,
		"chess":  `[{"probability":0.2,"points":10}]`,
	} {
		s.seedGame(t, gameconfig.GameConfig{GameID: game, Name: game, BasePoints: 100, RetryPenalty: 10, MaxRetries: 3})
		err := s.db.Model(&gameconfig.GameConfig{}).
			Where("game_id = ?", game).
			Updates(map[string]any{"scratcher_enabled": true, "scratcher_drops": drops}).Error
		require.NoError(t, err, game)

		_, err = s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: game})
		require.Error(t, err, game)
		require.Equal(t, errutil.StatusInternal, testutil.ErrStatus(t, err), game)
	}

	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, acct.TotalPoints)
}

func TestAwardSucceedsWithoutEconomySettings(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "sudoku", Name: "Sudoku", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3})

	// Break the economy store entirely; the award still lands, minus
	// the first play bonus.
	require.NoError(t, s.db.Migrator().DropTable(&gameconfig.EconomySettings{}))

	res, err := s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "sudoku"})
	require.NoError(t, err)
	require.Equal(t, int64(100), res.AwardedPoints)
	require.Zero(t, res.FirstPlayBonus)

	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(100), acct.TotalPoints)
}

func TestSpinSharesGateButNotGames(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "sudoku", Name: "Sudoku", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3})
	require.NoError(t, s.gamecfg.UpdateWheel(ctx, []prize.DropRule{{Probability: 1.0, Points: 25, Kind: prize.DropPoints, Label: "25 points"}}))

	res, err := s.award.Spin(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(25), res.Drop.Points)

	_, err = s.award.Spin(ctx, "u1")
	require.Error(t, err)
	require.Equal(t, errutil.StatusConflict, testutil.ErrStatus(t, err))

	// A real game award still goes through; the wheel slot is its own.
	_, err = s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "sudoku"})
	require.NoError(t, err)

	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(125), acct.TotalPoints)
	require.Equal(t, int64(100), acct.TotalXP, "wheel points carry no XP")
}

func TestSpinUnconfiguredWheel(t *testing.T) {
	s := newTestStack(t)

	_, err := s.award.Spin(context.Background(), "u1")
	require.Error(t, err)
	require.Equal(t, errutil.StatusServiceUnavailable, testutil.ErrStatus(t, err))
}

func TestConcurrentAwardsCommitExactlyOnce(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.seedGame(t, gameconfig.GameConfig{GameID: "sudoku", Name: "Sudoku", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3})
	s.seedEconomy(t, 25)

	const workers = 50
	var awarded, gated int64

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := s.award.Award(ctx, AwardRequest{UserID: "u1", GameID: "sudoku"})
			switch {
			case err == nil:
				atomic.AddInt64(&awarded, 1)
			case testutil.ErrStatus(t, err) == errutil.StatusConflict:
				atomic.AddInt64(&gated, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, int64(1), awarded, "exactly one commit wins the day")
	require.Equal(t, int64(workers-1), gated)

	acct, err := s.progression.Account(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(125), acct.TotalPoints, "single credit plus first play bonus")
	require.Equal(t, int64(100), acct.TotalXP)
}
