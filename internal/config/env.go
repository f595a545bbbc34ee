package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Env holds process configuration, loaded from GANTRY_* environment
// variables.
type Env struct {
	DBPath   string `envconfig:"DB" default:""`
	MaxDepth int    `envconfig:"MAX_DEPTH" default:"5"`
	Log      bool   `envconfig:"LOG" default:"false"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

const namespace = "GANTRY"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}
	if env.MaxDepth < 1 {
		return nil, fmt.Errorf("GANTRY_MAX_DEPTH must be at least 1, got %d", env.MaxDepth)
	}
	return &env, nil
}

// ResolveDBPath returns the configured DB path, defaulting to
// ~/.gantry/gantry.db.
func (e *Env) ResolveDBPath() (string, error) {
	if e.DBPath != "" {
		return e.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".gantry", "gantry.db"), nil
}

func (e *Env) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
