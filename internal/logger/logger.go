// Package logger builds the service's zap loggers.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/metasearch/internal/version"
)

// NewLogger creates a zap logger for the given environment.
// prod writes JSON, local/dev/docker write colored console output.
// level (if non-empty) overrides the environment's level: debug, info, warn, error.
// Every entry carries the service name and build version.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
		// per-engine failure lines repeat by nature and must not be sampled away
		cfg.Sampling = nil
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.InitialFields = map[string]any{
		"service": "metasearch",
		"version": version.Version,
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
