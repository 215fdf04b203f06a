package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. format is "json" or "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var logconf zap.Config
	switch format {
	case "", "json":
		logconf = zap.NewProductionConfig()
	case "console":
		logconf = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	logconf.Level = zap.NewAtomicLevelAt(lvl)
	logconf.EncoderConfig.TimeKey = "ts"
	logconf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return logconf.Build()
}
