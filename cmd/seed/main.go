package main

import (
	"context"
	"log"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/db"
	"meeplepoint-rewards/pkg/logger"
	"meeplepoint-rewards/services/gameconfig"
	"meeplepoint-rewards/services/gotd"
	"meeplepoint-rewards/services/playledger"
	"meeplepoint-rewards/services/prize"
	"meeplepoint-rewards/services/progression"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		fx.Invoke(seed),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var defaultGames = []gameconfig.GameConfig{
	{GameID: "2048", Name: "2048", BasePoints: 100, RetryPenalty: 10, MaxRetries: 3, FloorPoints: 5},
	{GameID: "sudoku", Name: "Sudoku", BasePoints: 120, RetryPenalty: 10, MaxRetries: 3, FloorPoints: 5},
	{GameID: "minesweeper", Name: "Minesweeper", BasePoints: 100, RetryPenalty: 15, MaxRetries: 2, FloorPoints: 5},
	{GameID: "snake", Name: "Snake", BasePoints: 80, RetryPenalty: 5, MaxRetries: 5, FloorPoints: 5},
	{GameID: "wordsearch", Name: "Word Search", BasePoints: 90, RetryPenalty: 10, MaxRetries: 3, FloorPoints: 5},
	{GameID: "chess", Name: "Chess Puzzle", BasePoints: 150, RetryPenalty: 20, MaxRetries: 2, FloorPoints: 10},
	{GameID: "trivia", Name: "Board Game Trivia", BasePoints: 100, RetryPenalty: 25, MaxRetries: 1, FloorPoints: 5},
}

var defaultTiers = []progression.Tier{
	{Name: "Pawn", MinXP: 0, Multiplier: 1.0, Badge: "pawn"},
	{Name: "Knight", MinXP: 500, Multiplier: 1.1, Perk: "free-shipping", Badge: "knight"},
	{Name: "Rook", MinXP: 2000, Multiplier: 1.25, Perk: "early-access", Badge: "rook"},
	{Name: "Queen", MinXP: 5000, Multiplier: 1.5, Perk: "vip-support", UnlockPrice: 1000, Badge: "queen"},
}

var defaultWheel = []prize.DropRule{
	{Probability: 0.50, Points: 10, Kind: prize.DropPoints, Label: "10 points"},
	{Probability: 0.30, Points: 25, Kind: prize.DropPoints, Label: "25 points"},
	{Probability: 0.15, Points: 50, Kind: prize.DropPoints, Label: "50 points"},
	{Probability: 0.04, Points: 0, Kind: prize.DropCoupon, Value: "SHIP-FREE", Label: "free shipping"},
	{Probability: 0.01, Points: 500, Kind: prize.DropJackpot, Label: "jackpot"},
}

func seed(gdb *gorm.DB, shutdowner fx.Shutdowner) error {
	ctx := context.Background()

	if err := gdb.WithContext(ctx).AutoMigrate(
		&gameconfig.GameConfig{},
		&gameconfig.EconomySettings{},
		&gameconfig.WheelConfig{},
		&playledger.PlayRecord{},
		&progression.Account{},
		&progression.Tier{},
		&progression.Redemption{},
		&gotd.State{},
		&gotd.RotationPolicy{},
	); err != nil {
		return err
	}

	for i := range defaultGames {
		if err := gdb.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&defaultGames[i]).Error; err != nil {
			return err
		}
	}

	for i := range defaultTiers {
		if err := gdb.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&defaultTiers[i]).Error; err != nil {
			return err
		}
	}

	eco := &gameconfig.EconomySettings{
		ID:                    1,
		PointsPerCurrencyUnit: 1,
		RedeemRate:            0.5,
		MaxRedeemPercent:      50,
		FirstPlayBonusPoints:  25,
	}
	if err := gdb.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(eco).Error; err != nil {
		return err
	}

	wheel := &gameconfig.WheelConfig{ID: 1}
	if err := wheel.SetDropRules(defaultWheel); err != nil {
		return err
	}
	if err := gdb.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(wheel).Error; err != nil {
		return err
	}

	zap.L().Info("seed complete",
		zap.Int("games", len(defaultGames)),
		zap.Int("tiers", len(defaultTiers)),
	)
	return shutdowner.Shutdown()
}
