// Package logging builds the zap loggers used across sqleval and sanitizes
// values (SQL text, connection strings) before they reach a log line.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a logger at the given level. The "local" environment gets
// the human-readable development encoder; every other environment logs JSON.
// Logs go to stderr so reports written to stdout stay machine-readable.
func NewLogger(level, env string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
