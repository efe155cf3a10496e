// Package config loads pool and process settings from the environment,
// optionally seeded from .env files.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/joshuapare/mempool/internal/logger"
	"github.com/joshuapare/mempool/pool"
)

// Prefix is the environment variable prefix, e.g. MEMPOOL_BLOCK_UNIT.
const Prefix = "MEMPOOL"

// Env mirrors the MEMPOOL_* environment variables. BACKING is mmap or heap,
// RELEASE is free-listed or all.
type Env struct {
	BlockUnit   int    `envconfig:"BLOCK_UNIT" default:"8192"`
	Sentinel    uint8  `envconfig:"SENTINEL" default:"255"`
	Backing     string `envconfig:"BACKING" default:"mmap"`
	Hardened    bool   `envconfig:"HARDENED" default:"false"`
	Release     string `envconfig:"RELEASE" default:"free-listed"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	LogEnabled  bool   `envconfig:"LOG_ENABLED" default:"false"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Load reads the given .env files (missing files are skipped) and then the
// process environment. Variables already set in the environment win over
// .env values.
func Load(files ...string) (Env, error) {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Env{}, errors.Wrap(err, "config: load .env")
		}
	}

	var env Env
	if err := envconfig.Process(Prefix, &env); err != nil {
		return Env{}, errors.Wrap(err, "config: process environment")
	}
	return env, nil
}

// PoolConfig converts env into a pool configuration.
func (e Env) PoolConfig() (pool.Config, error) {
	cfg := pool.DefaultConfig()
	cfg.BlockUnit = e.BlockUnit
	cfg.Sentinel = e.Sentinel
	cfg.Hardened = e.Hardened

	switch strings.ToLower(e.Backing) {
	case "", "mmap":
		cfg.Backing = pool.BackingMmap
	case "heap":
		cfg.Backing = pool.BackingHeap
	default:
		return pool.Config{}, errors.Wrapf(pool.ErrBadConfig, "backing %q", e.Backing)
	}

	switch strings.ToLower(e.Release) {
	case "", "free-listed":
		cfg.Release = pool.ReleaseFreeListed
	case "all":
		cfg.Release = pool.ReleaseAll
	default:
		return pool.Config{}, errors.Wrapf(pool.ErrBadConfig, "release policy %q", e.Release)
	}

	if err := cfg.Validate(); err != nil {
		return pool.Config{}, err
	}
	return cfg, nil
}

// LoggerOptions converts the logging fields into logger options.
func (e Env) LoggerOptions() (logger.Options, error) {
	lvl, err := logger.ParseLevel(e.LogLevel)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{
		Enabled: e.LogEnabled,
		Level:   lvl,
		Format:  e.LogFormat,
		Output:  os.Stderr,
	}, nil
}
