// Package config holds the tunables of the collision core: defaults,
// environment overrides and the helpers that turn them into options for
// the body manager, the query service and height field construction.
package config

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chazu/narrowphase/pkg/body"
	"github.com/chazu/narrowphase/pkg/query"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/chazu/narrowphase/pkg/shape/heightfield"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Environment keys read by FromEnv.
const (
	EnvLockPoolSize         = "NARROWPHASE_LOCK_POOL_SIZE"
	EnvMaxBodies            = "NARROWPHASE_MAX_BODIES"
	EnvMaxSeparation        = "NARROWPHASE_MAX_SEPARATION"
	EnvHeightFieldBlockSize = "NARROWPHASE_HEIGHTFIELD_BLOCK_SIZE"
	EnvLogLevel             = "NARROWPHASE_LOG_LEVEL"
	EnvMetrics              = "NARROWPHASE_METRICS"
)

// Config holds the settings shared by the packages of the core.
type Config struct {
	LockPoolSize int // Body mutexes, a power of two up to 64
	MaxBodies    int
	// MaxSeparationDistance is the default for shape overlap queries.
	MaxSeparationDistance float64
	HeightFieldBlockSize  uint32
	LogLevel              string
	Metrics               bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LockPoolSize:          body.DefaultLockPoolSize,
		MaxBodies:             body.MaxBodies,
		MaxSeparationDistance: 0,
		HeightFieldBlockSize:  heightfield.DefaultBlockSize,
		LogLevel:              "info",
		Metrics:               true,
	}
}

// FromEnv returns the defaults with environment overrides applied. Values
// that do not parse are ignored; Validate catches values that parse but
// are out of range.
func FromEnv() Config {
	cfg := Default()

	if n := getEnvInt(EnvLockPoolSize, 0); n > 0 {
		cfg.LockPoolSize = n
	}
	if n := getEnvInt(EnvMaxBodies, 0); n > 0 {
		cfg.MaxBodies = n
	}
	cfg.MaxSeparationDistance = getEnvFloat(EnvMaxSeparation, cfg.MaxSeparationDistance)
	if n := getEnvInt(EnvHeightFieldBlockSize, 0); n > 0 {
		cfg.HeightFieldBlockSize = uint32(n)
	}
	if l := os.Getenv(EnvLogLevel); l != "" {
		cfg.LogLevel = strings.ToLower(l)
	}
	cfg.Metrics = getEnvBool(EnvMetrics, cfg.Metrics)

	return cfg
}

// Validate reports every setting that is out of range.
func (c Config) Validate() error {
	var errs []error
	if c.LockPoolSize < 1 || c.LockPoolSize > body.MaxLockPoolSize || bits.OnesCount(uint(c.LockPoolSize)) != 1 {
		errs = append(errs, fmt.Errorf("lock pool size %d must be a power of 2 in [1, %d]", c.LockPoolSize, body.MaxLockPoolSize))
	}
	if c.MaxBodies < 1 || c.MaxBodies > body.MaxBodies {
		errs = append(errs, fmt.Errorf("max bodies %d out of range [1, %d]", c.MaxBodies, body.MaxBodies))
	}
	if c.MaxSeparationDistance < 0 {
		errs = append(errs, fmt.Errorf("max separation distance %v is negative", c.MaxSeparationDistance))
	}
	if bs := c.HeightFieldBlockSize; bs < 2 || bs > heightfield.MaxBlockSize || bits.OnesCount32(bs) != 1 {
		errs = append(errs, fmt.Errorf("height field block size %d must be a power of 2 in [2, %d]", bs, heightfield.MaxBlockSize))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger returns a logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return log.NewWithOptions(w, log.Options{Level: level, ReportTimestamp: true}), nil
}

// ManagerOptions returns the body manager options for this configuration.
// Each component logs under its own prefix.
func (c Config) ManagerOptions(logger *log.Logger) []body.Option {
	return []body.Option{
		body.WithLockPoolSize(c.LockPoolSize),
		body.WithMaxBodies(c.MaxBodies),
		body.WithLogger(logger.WithPrefix("body")),
	}
}

// QueryOptions returns the query service options for this configuration.
func (c Config) QueryOptions(logger *log.Logger) []query.Option {
	return []query.Option{
		query.WithLogger(logger.WithPrefix("query")),
		query.WithMetrics(c.Metrics),
	}
}

// HeightFieldSettings returns settings for an N × N grid using the
// configured block size.
func (c Config) HeightFieldSettings(samples []float32, offset, scale v3.Vec, sampleCount uint32) heightfield.Settings {
	s := heightfield.NewSettings(samples, offset, scale, sampleCount)
	s.BlockSize = c.HeightFieldBlockSize
	return s
}

// CollideShapeSettings returns the default overlap settings with the
// configured separation distance.
func (c Config) CollideShapeSettings() shape.CollideShapeSettings {
	s := shape.DefaultCollideShapeSettings()
	s.MaxSeparationDistance = c.MaxSeparationDistance
	return s
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
