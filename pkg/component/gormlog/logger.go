// Package gormlog adapts the unified kart logger to GORM's logger interface
// so that all database engines report through the same structured output.
package gormlog

import (
	"context"
	"errors"
	"time"

	"github.com/kart-io/logger"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*Logger)(nil)

// Logger implements gormlogger.Interface on top of the global kart logger.
type Logger struct {
	LogLevel                  gormlogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// New creates a gorm logger adapter. level maps 1..4 to
// Silent/Error/Warn/Info, anything else is Silent.
func New(level int, slowThreshold time.Duration) *Logger {
	var logLevel gormlogger.LogLevel
	switch level {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	case 4:
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Silent
	}

	return &Logger{
		LogLevel:                  logLevel,
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: true,
	}
}

// LogMode returns a copy of the logger at the given level.
func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

// Info logs info messages.
func (l *Logger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		logger.Global().WithCtx(ctx).Infof(msg, data...)
	}
}

// Warn logs warning messages.
func (l *Logger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		logger.Global().WithCtx(ctx).Warnf(msg, data...)
	}
}

// Error logs error messages.
func (l *Logger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		logger.Global().WithCtx(ctx).Errorf(msg, data...)
	}
}

// Trace logs executed SQL with duration, flagging failures and slow queries.
func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	ms := float64(elapsed.Nanoseconds()) / 1e6

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error && !l.skipError(err):
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Errorw("SQL query failed",
			"error", err,
			"sql", sql,
			"rows", rows,
			"duration_ms", ms,
		)
	case l.isSlow(elapsed) && l.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Warnw("Slow SQL query",
			"sql", sql,
			"rows", rows,
			"duration_ms", ms,
			"threshold_ms", float64(l.SlowThreshold.Nanoseconds())/1e6,
		)
	case l.LogLevel >= gormlogger.Info:
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Infow("SQL query",
			"sql", sql,
			"rows", rows,
			"duration_ms", ms,
		)
	}
}

func (l *Logger) skipError(err error) bool {
	return l.IgnoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound)
}

func (l *Logger) isSlow(elapsed time.Duration) bool {
	return l.SlowThreshold != 0 && elapsed > l.SlowThreshold
}
