// Package config loads the engine configuration for the workflow
// translator CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Checkpoint driver names.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the engine configuration.
type Config struct {
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Runner     RunnerConfig     `yaml:"runner"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CheckpointConfig selects and configures the checkpoint store.
type CheckpointConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the database file path for the sqlite driver.
	Path string `yaml:"path"`
}

// RunnerConfig bounds graph execution.
type RunnerConfig struct {
	// MaxSteps is the per-run step budget. Zero means the default.
	MaxSteps int `yaml:"max_steps"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		Checkpoint: CheckpointConfig{Driver: DriverMemory},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file, applying defaults for omitted sections.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	switch c.Checkpoint.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("checkpoint.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown checkpoint driver %q", c.Checkpoint.Driver)
	}

	if c.Runner.MaxSteps < 0 {
		return fmt.Errorf("runner.max_steps cannot be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	return nil
}
