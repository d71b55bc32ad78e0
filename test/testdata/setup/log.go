package setup

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewTestLogger builds a development logger without timestamps. The level
// comes from TEST_LOG_LEVEL and defaults to info.
func NewTestLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := os.Getenv("TEST_LOG_LEVEL"); raw != "" {
		parsed, err := zapcore.ParseLevel(raw)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = ""

	return cfg.Build()
}
