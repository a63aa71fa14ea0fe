// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the shared logger used by components that are not constructed with an
// explicit logger. It defaults to a no-op logger until InitLogger runs.
var L = zap.NewNop()

var initOnce sync.Once

// InitLogger replaces the global logger with a development build. It is safe
// to call multiple times; only the first call takes effect.
func InitLogger() {
	initOnce.Do(func() {
		logger, err := New(true)
		if err != nil {
			// Keep the no-op logger rather than aborting startup.
			return
		}
		L = logger
	})
}

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}
