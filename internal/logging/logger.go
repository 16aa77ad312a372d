// Package logging is the gateway's structured-logging ambient stack: a
// package-level zap.Logger configured for JSON output, ISO8601 timestamps,
// and a level controlled by ATMGW_LOG_LEVEL.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	baseLogger *zap.Logger
	atomicLVL  zap.AtomicLevel
)

func init() {
	atomicLVL = zap.NewAtomicLevelAt(parseLevel(getEnv("ATMGW_LOG_LEVEL", "info")))
	cfg := zap.Config{
		Level:       atomicLVL,
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := cfg.Build(zap.AddCaller())
	if err != nil {
		l = zap.NewNop()
	}
	baseLogger = l
}

// L returns the process-wide base logger. Components still take a *zap.Logger
// by constructor injection (spec.md §9); this accessor exists only for
// cmd/gateway's wiring and for contexts with no injected logger.
func L() *zap.Logger { return baseLogger }

func SetLevel(level string) { atomicLVL.SetLevel(parseLevel(level)) }

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
