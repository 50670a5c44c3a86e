// Package config loads mediator settings from the environment.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/cache"
	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/goliatone/go-repository-mediator/pipeline"
)

// Prefix is prepended to every variable name.
const Prefix = "MEDIATOR_"

// Cache modes accepted by MEDIATOR_CACHE_MODE.
const (
	ModeDisabled    = "disabled"
	ModeMemory      = "memory"
	ModeDistributed = "distributed"
)

var logLevels = []any{"trace", "debug", "info", "warn", "error", "disabled"}

// Config is the process level configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" json:"log_level"`
	Cache    Cache  `envPrefix:"CACHE_" json:"cache"`
	Redis    Redis  `envPrefix:"REDIS_" json:"redis"`
}

// Cache configures the cache-aside behaviors and the in-process store.
type Cache struct {
	Mode               string        `env:"MODE" envDefault:"memory" json:"mode"`
	TTL                time.Duration `env:"TTL" envDefault:"5m" json:"ttl"`
	Sliding            bool          `env:"SLIDING" json:"sliding"`
	Capacity           int           `env:"CAPACITY" envDefault:"10000" json:"capacity"`
	Shards             int           `env:"SHARDS" envDefault:"256" json:"shards"`
	EvictionPercentage int           `env:"EVICTION_PERCENTAGE" envDefault:"10" json:"eviction_percentage"`
	EvictionInterval   time.Duration `env:"EVICTION_INTERVAL" json:"eviction_interval"`
}

// Redis configures the distributed store.
type Redis struct {
	Addr     string        `env:"ADDR" envDefault:"localhost:6379" json:"addr"`
	Username string        `env:"USERNAME" json:"username"`
	Password string        `env:"PASSWORD" json:"-"`
	DB       int           `env:"DB" envDefault:"0" json:"db"`
	Prefix   string        `env:"PREFIX" envDefault:"mediator:" json:"prefix"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"200ms" json:"timeout"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.In(logLevels...)),
		validation.Field(&c.Cache),
		validation.Field(&c.Redis, validation.Skip.When(c.Cache.Mode != ModeDistributed)),
	)
	if err != nil {
		return errs.FromValidation(err, "invalid configuration")
	}
	return nil
}

func (c Cache) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.Required, validation.In(ModeDisabled, ModeMemory, ModeDistributed)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Capacity, validation.Min(1)),
		validation.Field(&c.Shards, validation.Min(1)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.EvictionPercentage, validation.Min(1), validation.Max(100)),
	)
}

func (r Redis) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addr, validation.Required),
		validation.Field(&r.DB, validation.Min(0)),
		validation.Field(&r.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// CacheMode maps Cache.Mode onto the pipeline mode.
func (c Config) CacheMode() pipeline.CacheMode {
	switch c.Cache.Mode {
	case ModeMemory:
		return pipeline.CacheMemory
	case ModeDistributed:
		return pipeline.CacheDistributed
	}
	return pipeline.CacheDisabled
}

// MemoryStore returns the sturdyc store settings.
func (c Config) MemoryStore() cache.Config {
	return cache.Config{
		Capacity:           c.Cache.Capacity,
		NumShards:          c.Cache.Shards,
		TTL:                c.Cache.TTL,
		EvictionPercentage: c.Cache.EvictionPercentage,
		EvictionInterval:   c.Cache.EvictionInterval,
	}
}

// RedisStore returns the redis store settings.
func (c Config) RedisStore() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:     c.Redis.Addr,
		Username: c.Redis.Username,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
		Timeout:  c.Redis.Timeout,
	}
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger builds a timestamped logger writing to w at Level.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(c.Level()).With().Timestamp().Logger()
}
