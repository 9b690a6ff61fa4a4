package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	Horizon           int64          `yaml:"horizon"`            // 10000 (by default)
	CapacityTolerance float64        `yaml:"capacity_tolerance"` // 0 (by default)
	OverflowPolicy    OverflowPolicy `yaml:"overflow_policy"`    // greater-capacity (by default)
	ParallelClusters  bool           `yaml:"parallel_clusters"`  // false (by default)
	LogLevel          string         `yaml:"log_level"`          // info (by default)
}

// DefaultConfig is used for every field the config file leaves out.
func DefaultConfig() Config {
	return Config{
		Horizon:           10000,
		CapacityTolerance: 0,
		OverflowPolicy:    OverflowGreaterCapacity,
		ParallelClusters:  false,
		LogLevel:          "info",
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file = defaults only.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	// sanity clamps
	if cfg.Horizon <= 0 {
		cfg.Horizon = 10000
	}
	if cfg.CapacityTolerance < 0 {
		cfg.CapacityTolerance = 0
	}
	if !cfg.OverflowPolicy.valid() {
		cfg.OverflowPolicy = OverflowGreaterCapacity
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
