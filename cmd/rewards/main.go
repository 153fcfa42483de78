package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"meeplepoint-rewards/pkg/asynq"
	"meeplepoint-rewards/pkg/config"
	"meeplepoint-rewards/pkg/db"
	"meeplepoint-rewards/pkg/health"
	"meeplepoint-rewards/pkg/logger"
	"meeplepoint-rewards/pkg/redis"
	"meeplepoint-rewards/pkg/sequence"
	"meeplepoint-rewards/pkg/server"
	"meeplepoint-rewards/services/award"
	"meeplepoint-rewards/services/gameconfig"
	"meeplepoint-rewards/services/gotd"
	"meeplepoint-rewards/services/playledger"
	"meeplepoint-rewards/services/progression"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		asynq.Client,
		asynq.Server,
		asynq.Scheduler,
		fx.Provide(
			provideSnowflakeNode,
		),
		health.Module,
		server.ProvideHTTPServer,
		gameconfig.Module,
		playledger.Module,
		progression.Module,
		gotd.Module,
		gotd.TaskModule,
		award.Module,
		fx.Invoke(
			db.Otel,
			db.Metric,
			migrate,
		),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&gameconfig.GameConfig{},
		&gameconfig.EconomySettings{},
		&gameconfig.WheelConfig{},
		&playledger.PlayRecord{},
		&progression.Account{},
		&progression.Tier{},
		&progression.Redemption{},
		&gotd.State{},
		&gotd.RotationPolicy{},
	)
}
