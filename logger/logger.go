// Package logger builds the zap loggers used across beaver-trust.
//
// Engines accept a *zap.Logger and default to Nop, so nothing is emitted
// unless the caller wires a logger in. Key material, secrets, plaintexts and
// MACs must never be passed as fields.
package logger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobeaver/beaver-trust/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrInvalidConfig is returned for unknown levels or formats.
var ErrInvalidConfig = errors.New("invalid logger configuration")

// Config controls level and encoding.
type Config struct {
	// Level is one of debug, info, warn, error
	Level string `env:"LOG_LEVEL,default:info"`

	// Format is json or console
	Format string `env:"LOG_FORMAT,default:json"`

	// Name is attached as the logger name when set
	Name string `env:"LOG_NAME"`
}

// GetConfig loads logger configuration from BEAVER_LOG_* variables.
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New creates a zap logger from cfg. Output goes to stderr.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.Name != "" {
		l = l.Named(cfg.Name)
	}
	return l, nil
}

// NewFromEnv is GetConfig followed by New.
func NewFromEnv() (*zap.Logger, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(*cfg)
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// ParseLevel maps a level name to a zapcore.Level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%w: unknown level %q", ErrInvalidConfig, s)
	}
}
