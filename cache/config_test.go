package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected 5m default ttl, got %v", cfg.TTL)
	}

	cfg.Capacity = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected zero capacity to be rejected")
	}
	if _, err := NewMemoryStore(cfg); err == nil {
		t.Error("expected NewMemoryStore to reject invalid config")
	}
}

func TestNewMemoryStore_Capabilities(t *testing.T) {
	store, err := NewMemoryStore(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(PrefixRemover); !ok {
		t.Error("memory store should remove by prefix")
	}
}

func TestNewRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)

	if _, err := NewRedisStore(RedisConfig{}); err == nil {
		t.Error("expected missing address to be rejected")
	}

	store, err := NewRedisStore(RedisConfig{Addr: srv.Addr(), Prefix: "m:", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	if _, ok := store.(Toucher); !ok {
		t.Error("redis store should support GetAndTouch")
	}
	if _, ok := store.(PrefixRemover); !ok {
		t.Error("redis store should remove by prefix")
	}

	ctx := context.Background()
	if err := store.Set(ctx, "order::get_by_id::1", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if !srv.Exists("m:order::get_by_id::1") {
		t.Error("expected configured prefix on written keys")
	}
}

func TestNewRedisStoreWithClient(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreWithClient(client, "")
	ctx := context.Background()
	if _, err := store.Get(ctx, "missing"); !IsMiss(err) {
		t.Errorf("expected miss, got %v", err)
	}
}
