package app

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/designengineer/course-api/internal/config"
)

// NewLogger builds the process logger.  Production JSON encoding is used
// everywhere; the level drops to debug outside production or when
// LOG_LEVEL asks for it.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !cfg.IsProduction() {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if cfg.LogLevel != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err == nil {
			zc.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	return zc.Build()
}
