package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// TrackingStore records the keys it writes so that stores without a key scan
// can still be cleared by prefix. Keys written to the inner store by other
// processes are not seen.
type TrackingStore struct {
	inner Store
	keys  *xsync.MapOf[string, struct{}]
}

// WithKeyTracking returns store unchanged when it already removes by prefix,
// otherwise a TrackingStore around it.
func WithKeyTracking(store Store) Store {
	if _, ok := store.(PrefixRemover); ok {
		return store
	}
	return &TrackingStore{inner: store, keys: xsync.NewMapOf[string, struct{}]()}
}

func (s *TrackingStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.inner.Get(ctx, key)
	if IsMiss(err) {
		s.keys.Delete(key)
	}
	return value, err
}

// GetAndTouch delegates to the inner store when it touches natively. Otherwise
// the entry is read and rewritten through Set so the key stays tracked.
func (s *TrackingStore) GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	if t, ok := s.inner.(Toucher); ok {
		return t.GetAndTouch(ctx, key, ttl)
	}
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *TrackingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.inner.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	s.keys.Store(key, struct{}{})
	return nil
}

func (s *TrackingStore) Remove(ctx context.Context, key string) error {
	s.keys.Delete(key)
	return s.inner.Remove(ctx, key)
}

func (s *TrackingStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	var matched []string
	s.keys.Range(func(key string, _ struct{}) bool {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
		return true
	})

	var errs []error
	removed := 0
	for _, key := range matched {
		if err := s.Remove(ctx, key); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Tracked reports how many keys are currently registered.
func (s *TrackingStore) Tracked() int {
	return s.keys.Size()
}
