package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// logger is the process logger set by Init
	logger *zap.Logger

	// level backs logger and can be changed while running
	level = zap.NewAtomicLevel()
)

// New builds a logger writing JSON ("json") or human-readable console output ("text")
func New(lvl, format string, atom zap.AtomicLevel) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(lvl)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s", lvl)
	}
	atom.SetLevel(parsed)

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	cfg.Level = atom
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return built, nil
}

// Init configures the process logger
func Init(lvl, format string) error {
	built, err := New(lvl, format, level)
	if err != nil {
		return err
	}
	logger = built
	zap.RedirectStdLog(logger)
	return nil
}

// SetLevel changes the level of the process logger
func SetLevel(lvl string) error {
	parsed, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return fmt.Errorf("invalid log level: %s", lvl)
	}
	level.SetLevel(parsed)
	return nil
}

// Level returns the current level of the process logger
func Level() zapcore.Level {
	return level.Level()
}

// Sync flushes any buffered log entries
func Sync() error {
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// GetZapLogger returns the process logger, a no-op logger before Init
func GetZapLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Named returns a child logger for a component
func Named(component string, fields ...zap.Field) *zap.Logger {
	return GetZapLogger().Named(component).With(fields...)
}
