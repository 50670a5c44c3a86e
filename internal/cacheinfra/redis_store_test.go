package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)

	client, err := NewRedisClient(RedisConfig{Addr: srv.Addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	store := NewRedisStore(client, prefix)
	t.Cleanup(func() { _ = store.Close() })
	return store, srv
}

func TestNewRedisClient_InvalidConfig(t *testing.T) {
	if _, err := NewRedisClient(RedisConfig{}); err == nil {
		t.Fatal("expected validation error for missing address")
	}
}

func TestRedisStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestRedisStore(t, "test:")

	if _, err := store.Get(ctx, "order::get_by_id::1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := store.Set(ctx, "order::get_by_id::1", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !srv.Exists("test:order::get_by_id::1") {
		t.Error("expected key to be written with the store prefix")
	}
	if ttl := srv.TTL("test:order::get_by_id::1"); ttl != time.Minute {
		t.Errorf("expected ttl of one minute, got %v", ttl)
	}

	value, err := store.Get(ctx, "order::get_by_id::1")
	if err != nil || string(value) != "payload" {
		t.Fatalf("Get() = %q, %v", value, err)
	}

	if err := store.Remove(ctx, "order::get_by_id::1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Get(ctx, "order::get_by_id::1"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected miss after remove, got %v", err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestRedisStore(t, "")

	if err := store.Set(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatal(err)
	}
	srv.FastForward(11 * time.Second)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected expired entry to miss, got %v", err)
	}
}

func TestRedisStore_GetAndTouch(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestRedisStore(t, "")

	if err := store.Set(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatal(err)
	}
	srv.FastForward(8 * time.Second)

	value, err := store.GetAndTouch(ctx, "k", 10*time.Second)
	if err != nil || string(value) != "v" {
		t.Fatalf("GetAndTouch() = %q, %v", value, err)
	}
	srv.FastForward(8 * time.Second)

	if _, err := store.Get(ctx, "k"); err != nil {
		t.Errorf("expected touched entry to survive, got %v", err)
	}

	if _, err := store.GetAndTouch(ctx, "missing", time.Second); !errors.Is(err, ErrMiss) {
		t.Errorf("expected miss, got %v", err)
	}
}

func TestRedisStore_RemovePrefix(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestRedisStore(t, "app:")

	for _, key := range []string{"order::query::a", "order::query::b", "order::get_by_id::1", "invoice::query::a"} {
		if err := store.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if err := srv.Set("other:order::query::c", "foreign"); err != nil {
		t.Fatal(err)
	}

	removed, err := store.RemovePrefix(ctx, "order::query::")
	if err != nil {
		t.Fatalf("RemovePrefix() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed keys, got %d", removed)
	}
	if !srv.Exists("app:order::get_by_id::1") || !srv.Exists("app:invoice::query::a") {
		t.Error("unrelated keys were removed")
	}
	if !srv.Exists("other:order::query::c") {
		t.Error("keys outside the store prefix must not be touched")
	}
}

func TestRedisStore_ServerErrors(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestRedisStore(t, "")

	srv.SetError("ERR simulated outage")
	if _, err := store.Get(ctx, "k"); err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("expected server error, got %v", err)
	}
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Error("expected set to fail")
	}
	srv.SetError("")
}

func TestGlobEscape(t *testing.T) {
	got := globEscape(`a*b?c[d]\`)
	want := `a\*b\?c\[d\]\\`
	if got != want {
		t.Errorf("globEscape() = %q, want %q", got, want)
	}
}
