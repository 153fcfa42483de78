package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const defaultSlowThreshold = 200 * time.Millisecond

// queryLogger bridges gorm's logger.Interface onto zap. Record-not-found
// is part of normal control flow here (gate pre-checks, config lookups)
// and is never logged as an error.
type queryLogger struct {
	zap       *zap.Logger
	level     logger.LogLevel
	slowAfter time.Duration
	traceAll  bool
}

// NewQueryLogger builds a gorm logger that reports slow statements above
// slowAfter. A zero slowAfter falls back to 200ms; traceAll additionally
// logs every statement at Info level.
func NewQueryLogger(z *zap.Logger, level logger.LogLevel, slowAfter time.Duration, traceAll bool) logger.Interface {
	if slowAfter <= 0 {
		slowAfter = defaultSlowThreshold
	}
	return &queryLogger{zap: z, level: level, slowAfter: slowAfter, traceAll: traceAll}
}

func (l *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.zap.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.zap.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.zap.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		sql, rows := fc()
		l.zap.Error("db.query", l.fields(sql, rows, elapsed, zap.Error(err))...)
	case elapsed >= l.slowAfter:
		sql, rows := fc()
		l.zap.Warn("db.slow_query", l.fields(sql, rows, elapsed, zap.Duration("threshold", l.slowAfter))...)
	case l.traceAll && l.level >= logger.Info:
		sql, rows := fc()
		l.zap.Info("db.query", l.fields(sql, rows, elapsed)...)
	}
}

func (l *queryLogger) fields(sql string, rows int64, elapsed time.Duration, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("caller", utils.FileWithLineNum()),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	return append(fields, extra...)
}
