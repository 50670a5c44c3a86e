package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-repository-mediator/internal/cacheinfra"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = cacheinfra.ErrMiss

// Store is the key-value surface cache behaviors depend on. Values are opaque
// byte slices; behaviors only ever get, set or remove whole entries.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// PrefixRemover is implemented by stores that can drop every key sharing a prefix.
type PrefixRemover interface {
	RemovePrefix(ctx context.Context, prefix string) (int, error)
}

// Toucher is implemented by stores that can read an entry and reset its TTL
// in a single operation.
type Toucher interface {
	GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
}

// IsMiss reports whether err signals an absent entry.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// GetSliding reads key and extends its lifetime to ttl. Stores implementing
// Toucher do it atomically; others are read and rewritten, so an entry removed
// between the read and the rewrite comes back. Callers that race invalidation
// must check for that afterwards.
func GetSliding(ctx context.Context, store Store, key string, ttl time.Duration) ([]byte, error) {
	if t, ok := store.(Toucher); ok {
		return t.GetAndTouch(ctx, key, ttl)
	}
	value, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}
