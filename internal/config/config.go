// Package config defines the annobatch configuration file format and its
// documented defaults. Configuration is an explicit struct loaded once at
// startup; the CLI applies flag and environment overrides on top before
// anything is dispatched.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default engine settings. These apply when a section is absent from the
// config file.
const (
	DefaultConcurrency    = 4
	DefaultRetryAttempts  = 2
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultTaskTimeout    = 60 * time.Second
	DefaultRateLimitDelay = 200 * time.Millisecond

	DefaultBackoffMultiplier = 2.0
	DefaultJitterRatio       = 0.2

	DefaultMinBatchSize     = 1
	DefaultMaxBatchSize     = 500
	DefaultOptimalBatchSize = 50
)

// Default per-1K-unit prices for the cost ledger. Callers with real
// provider pricing override these in the config file.
const (
	DefaultInputUnitPrice     = 0.003
	DefaultOutputUnitPrice    = 0.015
	DefaultAuxiliaryUnitPrice = 0.001
)

// Config is the root annobatch configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Batch   BatchConfig   `yaml:"batch"`
	Cost    CostConfig    `yaml:"cost"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig controls the batch execution engine.
type EngineConfig struct {
	// Concurrency is the maximum number of simultaneously in-flight tasks.
	Concurrency int `yaml:"concurrency"`

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the base backoff delay before the first retry.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// BackoffMultiplier scales the delay on each successive retry.
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// JitterRatio bounds the random perturbation applied to backoff
	// delays, as a fraction of the base value.
	JitterRatio float64 `yaml:"jitter_ratio"`

	// TaskTimeout bounds a single work-function attempt.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// RateLimitDelay is the minimum spacing between dispatch starts,
	// shared across all workers.
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`
}

// BatchConfig bounds adaptive batch sizing.
type BatchConfig struct {
	MinSize     int `yaml:"min_size"`
	MaxSize     int `yaml:"max_size"`
	OptimalSize int `yaml:"optimal_size"`
}

// CostConfig carries the unit-price table for the cost ledger.
// Prices are per 1000 units.
type CostConfig struct {
	InputUnitPrice     float64 `yaml:"input_unit_price"`
	OutputUnitPrice    float64 `yaml:"output_unit_price"`
	AuxiliaryUnitPrice float64 `yaml:"auxiliary_unit_price"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// New returns a Config populated with documented defaults.
func New() *Config {
	return &Config{
		Engine: EngineConfig{
			Concurrency:       DefaultConcurrency,
			RetryAttempts:     DefaultRetryAttempts,
			RetryDelay:        DefaultRetryDelay,
			BackoffMultiplier: DefaultBackoffMultiplier,
			JitterRatio:       DefaultJitterRatio,
			TaskTimeout:       DefaultTaskTimeout,
			RateLimitDelay:    DefaultRateLimitDelay,
		},
		Batch: BatchConfig{
			MinSize:     DefaultMinBatchSize,
			MaxSize:     DefaultMaxBatchSize,
			OptimalSize: DefaultOptimalBatchSize,
		},
		Cost: CostConfig{
			InputUnitPrice:     DefaultInputUnitPrice,
			OutputUnitPrice:    DefaultOutputUnitPrice,
			AuxiliaryUnitPrice: DefaultAuxiliaryUnitPrice,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file and merges it onto the defaults. A missing
// file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration eagerly, before any task is dispatched.
func (c *Config) Validate() error {
	if c.Engine.Concurrency <= 0 {
		return fmt.Errorf("engine.concurrency must be positive, got %d", c.Engine.Concurrency)
	}
	if c.Engine.RetryAttempts < 0 {
		return fmt.Errorf("engine.retry_attempts must be non-negative, got %d", c.Engine.RetryAttempts)
	}
	if c.Engine.RetryDelay < 0 {
		return fmt.Errorf("engine.retry_delay must be non-negative, got %s", c.Engine.RetryDelay)
	}
	if c.Engine.BackoffMultiplier < 1 {
		return fmt.Errorf("engine.backoff_multiplier must be >= 1, got %g", c.Engine.BackoffMultiplier)
	}
	if c.Engine.JitterRatio < 0 || c.Engine.JitterRatio > 1 {
		return fmt.Errorf("engine.jitter_ratio must be within [0, 1], got %g", c.Engine.JitterRatio)
	}
	if c.Engine.TaskTimeout < 0 {
		return fmt.Errorf("engine.task_timeout must be non-negative, got %s", c.Engine.TaskTimeout)
	}
	if c.Engine.RateLimitDelay < 0 {
		return fmt.Errorf("engine.rate_limit_delay must be non-negative, got %s", c.Engine.RateLimitDelay)
	}
	if c.Batch.MinSize < 1 {
		return fmt.Errorf("batch.min_size must be >= 1, got %d", c.Batch.MinSize)
	}
	if c.Batch.MaxSize < c.Batch.MinSize {
		return fmt.Errorf("batch.max_size (%d) must be >= batch.min_size (%d)",
			c.Batch.MaxSize, c.Batch.MinSize)
	}
	if c.Batch.OptimalSize < c.Batch.MinSize || c.Batch.OptimalSize > c.Batch.MaxSize {
		return fmt.Errorf("batch.optimal_size (%d) must be within [%d, %d]",
			c.Batch.OptimalSize, c.Batch.MinSize, c.Batch.MaxSize)
	}
	if c.Cost.InputUnitPrice < 0 || c.Cost.OutputUnitPrice < 0 || c.Cost.AuxiliaryUnitPrice < 0 {
		return errors.New("cost unit prices must be non-negative")
	}
	return nil
}
