// Package config provides configuration management for Werkbank.
// It loads settings from environment variables with the WERKBANK_ prefix.
//
// All configuration is validated at load time. A variable that is set but
// invalid (unparseable, out of range, or violating the weight-sum invariant)
// is an error, never silently replaced with a default. Defaults apply only
// when a variable is unset.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
)

// ErrInvalidConfig indicates that required configuration is missing or
// invalid. It is fatal: the engine refuses to start or to serve requests
// rather than substituting defaults for broken configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// weightEpsilon is the tolerance for the hybrid weight-sum invariant.
const weightEpsilon = 1e-9

// Config holds all configuration settings for the Werkbank engine.
type Config struct {
	Storage       StorageConfig
	Hybrid        HybridWeights
	Collaborative CollaborativeConfig
	Engine        EngineConfig
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to the SQLite data directory (default: ./data)
	PostgresDSN   string // Postgres connection string (required for the postgres engine)
}

// HybridWeights are the fusion weights for the three recommendation signals.
// They must be non-negative and sum to exactly 1.0 (within 1e-9).
type HybridWeights struct {
	Content       float64 // Weight for the content-based keyword signal
	Collaborative float64 // Weight for the collaborative-filtering signal
	Compatibility float64 // Weight for the compatibility-graph signal
}

// Sum returns the total of the three weights.
func (w HybridWeights) Sum() float64 {
	return w.Content + w.Collaborative + w.Compatibility
}

// CollaborativeConfig contains collaborative-filtering thresholds.
// Computed similarities below the applicable threshold are excluded from
// results entirely, not clamped to zero.
type CollaborativeConfig struct {
	MinUserSimilarity float64 // Minimum user-based similarity (0.0 to 1.0)
	MinItemSimilarity float64 // Minimum item-based similarity (0.0 to 1.0)
}

// EngineConfig contains scoring and output settings.
type EngineConfig struct {
	// IncompatibilityPenalty multiplies the hybrid score of candidates
	// flagged incompatible so they rank below every viable alternative
	// without being removed from the result list.
	IncompatibilityPenalty float64

	// MaxResults caps the number of recommendations returned per request.
	MaxResults int
}

// LoadConfig loads configuration from environment variables and validates it.
// Returns ErrInvalidConfig (wrapped) when any value is unparseable or violates
// an invariant.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			StorageEngine: getEnv("WERKBANK_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("WERKBANK_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("WERKBANK_POSTGRES_DSN", ""),
		},
	}

	var err error
	if cfg.Hybrid.Content, err = getEnvFloat("WERKBANK_HYBRID_WEIGHT_CONTENT", 0.40); err != nil {
		return nil, err
	}
	if cfg.Hybrid.Collaborative, err = getEnvFloat("WERKBANK_HYBRID_WEIGHT_COLLABORATIVE", 0.35); err != nil {
		return nil, err
	}
	if cfg.Hybrid.Compatibility, err = getEnvFloat("WERKBANK_HYBRID_WEIGHT_COMPATIBILITY", 0.25); err != nil {
		return nil, err
	}
	if cfg.Collaborative.MinUserSimilarity, err = getEnvFloat("WERKBANK_CF_MIN_USER_SIMILARITY", 0.30); err != nil {
		return nil, err
	}
	if cfg.Collaborative.MinItemSimilarity, err = getEnvFloat("WERKBANK_CF_MIN_ITEM_SIMILARITY", 0.30); err != nil {
		return nil, err
	}
	if cfg.Engine.IncompatibilityPenalty, err = getEnvFloat("WERKBANK_INCOMPATIBILITY_PENALTY", 0.05); err != nil {
		return nil, err
	}
	if cfg.Engine.MaxResults, err = getEnvInt("WERKBANK_MAX_RESULTS", 10); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the configuration invariants. Misconfiguration is a
// startup failure, not something discovered at request time.
func (c *Config) Validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown storage engine %q", ErrInvalidConfig, c.Storage.StorageEngine)
	}

	if c.Storage.StorageEngine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: WERKBANK_POSTGRES_DSN is required for the postgres engine", ErrInvalidConfig)
	}

	if c.Hybrid.Content < 0 || c.Hybrid.Collaborative < 0 || c.Hybrid.Compatibility < 0 {
		return fmt.Errorf("%w: hybrid weights must be non-negative (content=%g collaborative=%g compatibility=%g)",
			ErrInvalidConfig, c.Hybrid.Content, c.Hybrid.Collaborative, c.Hybrid.Compatibility)
	}

	if sum := c.Hybrid.Sum(); math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("%w: hybrid weights must sum to 1.0, got %g", ErrInvalidConfig, sum)
	}

	if err := checkUnitRange("WERKBANK_CF_MIN_USER_SIMILARITY", c.Collaborative.MinUserSimilarity); err != nil {
		return err
	}
	if err := checkUnitRange("WERKBANK_CF_MIN_ITEM_SIMILARITY", c.Collaborative.MinItemSimilarity); err != nil {
		return err
	}
	if err := checkUnitRange("WERKBANK_INCOMPATIBILITY_PENALTY", c.Engine.IncompatibilityPenalty); err != nil {
		return err
	}

	if c.Engine.MaxResults < 1 {
		return fmt.Errorf("%w: WERKBANK_MAX_RESULTS must be at least 1, got %d", ErrInvalidConfig, c.Engine.MaxResults)
	}

	return nil
}

// checkUnitRange validates that a value lies in [0, 1].
func checkUnitRange(name string, v float64) error {
	if v < 0.0 || v > 1.0 {
		return fmt.Errorf("%w: %s must be in [0,1], got %g", ErrInvalidConfig, name, v)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value when unset. A set-but-unparseable value is an error.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a valid float", ErrInvalidConfig, key, value)
	}
	return f, nil
}

// getEnvInt retrieves an integer environment variable or returns a default
// value when unset. A set-but-unparseable value is an error.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a valid integer", ErrInvalidConfig, key, value)
	}
	return n, nil
}
