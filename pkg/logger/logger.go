// Package logger builds the process-wide zap.Logger, the one piece of
// global mutable state spec.md §5 permits ("no in-process global mutable
// state except process-wide logging configuration, initialized once at
// startup").
package logger

import (
	"strings"

	"github.com/aflr-dev/aflr/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger from the configured level, switching between a
// development and production encoder config exactly as the teacher's
// NewLogger does.
func New(cfg *config.AppConfig) *zap.Logger {
	level := zapcore.InfoLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var zcfg zap.Config
	if level > zapcore.InfoLevel {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	lg, err := zcfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return lg
}
