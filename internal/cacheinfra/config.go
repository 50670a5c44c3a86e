package cacheinfra

import (
	"errors"
	"time"
)

// ErrMiss is returned by stores when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Config holds the configuration for the sturdyc backed memory store.
type Config struct {
	// Capacity defines the maximum number of entries each TTL pool can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is applied when an entry is written without an explicit TTL.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when a pool reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are swept.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

// RedisConfig configures the go-redis backed distributed store.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Prefix namespaces every key written by the store, e.g. "mediator:".
	Prefix string

	// Timeout bounds dial, read and write operations on the client.
	Timeout time.Duration
}

// DefaultRedisConfig returns a RedisConfig pointing at a local server.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:    "localhost:6379",
		Timeout: 200 * time.Millisecond,
	}
}

// Validate checks if the Redis configuration values are valid.
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return &ConfigError{Field: "Addr", Message: "is required"}
	}
	if c.DB < 0 {
		return &ConfigError{Field: "DB", Message: "must be non-negative"}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "Timeout", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
