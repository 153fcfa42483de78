package logger

import (
	"meeplepoint-rewards/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("zap",
	fx.Provide(
		New,
	),
)

type ConfigParams struct {
	fx.In
	Cfg *config.Config
}

// New builds the process logger and installs it as the zap global.
// Production gets structured JSON on stdout; everything else gets the
// human-readable development encoder.
func New(p ConfigParams) *zap.Logger {
	var log *zap.Logger

	if p.Cfg.AppEnv == "production" {
		c := zap.NewProductionConfig()
		c.Encoding = "json"
		c.OutputPaths = []string{"stdout"}
		c.ErrorOutputPaths = []string{"stderr"}
		c.EncoderConfig.TimeKey = "timestamp"
		c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		c.EncoderConfig.LevelKey = "severity"
		c.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		c.EncoderConfig.CallerKey = "caller"
		c.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		c.EncoderConfig.StacktraceKey = "stacktrace"
		log = zap.Must(c.Build())
	} else {
		log = zap.Must(zap.NewDevelopment())
	}

	log = log.With(
		zap.String("env", p.Cfg.AppEnv),
		zap.String("service_name", p.Cfg.AppName),
		zap.String("version", p.Cfg.AppVersion),
	)

	zap.ReplaceGlobals(log)

	return log
}
