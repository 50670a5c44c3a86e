package cache

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-repository-mediator/internal/cacheinfra"
)

// Config exposes the in-process store options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// RedisConfig configures the distributed store.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	cfg := cacheinfra.DefaultConfig()
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

// DefaultRedisConfig returns a RedisConfig pointing at a local server.
func DefaultRedisConfig() RedisConfig {
	cfg := cacheinfra.DefaultRedisConfig()
	return RedisConfig{
		Addr:    cfg.Addr,
		DB:      cfg.DB,
		Prefix:  cfg.Prefix,
		Timeout: cfg.Timeout,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// Validate checks whether the configuration values are valid.
func (c RedisConfig) Validate() error {
	return c.toInternal().Validate()
}

// NewMemoryStore constructs the sturdyc backed in-process store.
// The returned store also implements PrefixRemover.
func NewMemoryStore(cfg Config) (Store, error) {
	store, err := cacheinfra.NewSturdycStore(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewRedisStore builds a go-redis client from cfg. The client connects lazily.
// The returned store also implements PrefixRemover and Toucher.
func NewRedisStore(cfg RedisConfig) (Store, error) {
	internal := cfg.toInternal()
	client, err := cacheinfra.NewRedisClient(internal)
	if err != nil {
		return nil, err
	}
	return cacheinfra.NewRedisStore(client, internal.Prefix), nil
}

// NewRedisStoreWithClient wraps a caller owned go-redis client.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) Store {
	return cacheinfra.NewRedisStore(client, prefix)
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func (c RedisConfig) toInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
		Prefix:   c.Prefix,
		Timeout:  c.Timeout,
	}
}
