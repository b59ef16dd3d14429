// Package logging builds the process logger: zap does the encoding, and the
// rest of the code logs through log/slog via a logr bridge.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the log level and encoder preset.
type Options struct {
	Level string // debug, info, warn, error
	Mode  string // production, development
}

// New builds a slog logger backed by zap. The returned sync function
// flushes buffered entries and should be deferred by the caller.
func New(opts Options) (*slog.Logger, func(), error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Mode) {
	case "dev", "development":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zl, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}
	return FromZap(zl), func() { _ = zl.Sync() }, nil
}

// FromZap wraps an existing zap logger.
func FromZap(zl *zap.Logger) *slog.Logger {
	return slog.New(logr.ToSlogHandler(zapr.NewLogger(zl)))
}

// parseLevel maps a level name to the zap level that lets the matching
// slog records through. zapr maps slog debug (-4) to zap level -4.
func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.Level(-4), nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
