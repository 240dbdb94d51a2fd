// Package logger provides structured logging for the engine on top of zap.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is an alias for zap.Field so callers don't import zap directly.
type Field = zap.Field

// Convenience field constructors re-exported for call sites.
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Duration = zap.Duration
	Time     = zap.Time
	Err      = zap.Error
	Bool     = zap.Bool
)

// Logger is the structured logging interface used across the engine.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type zapLogger struct {
	logger *zap.Logger
}

// ParseLevel parses a level string, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a logger. Format "json" selects the production encoder,
// anything else the development console encoder.
func New(level zapcore.Level, format string) Logger {
	var config zap.Config
	if format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return &zapLogger{logger: logger}
}

// NewFromConfig creates a logger from string configuration.
func NewFromConfig(level, format string) Logger {
	return New(ParseLevel(level), format)
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}

func (z *zapLogger) Debug(msg string, fields ...Field) { z.logger.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.logger.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.logger.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.logger.Error(msg, fields...) }

func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: z.logger.With(fields...)}
}
