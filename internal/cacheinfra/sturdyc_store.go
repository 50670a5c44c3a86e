package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// SturdycStore is an in-process byte store backed by sturdyc.
//
// sturdyc fixes the TTL per client, so the store keeps one client per
// distinct TTL and routes writes by the requested duration. Reads probe every
// pool; a key lives in at most one pool at a time.
type SturdycStore struct {
	cfg     Config
	clients *xsync.MapOf[time.Duration, *sturdyc.Client[[]byte]]
}

// NewSturdycStore validates the configuration and creates an empty store.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &SturdycStore{
		cfg:     cfg,
		clients: xsync.NewMapOf[time.Duration, *sturdyc.Client[[]byte]](),
	}
	s.client(cfg.TTL)
	return s, nil
}

func (s *SturdycStore) client(ttl time.Duration) *sturdyc.Client[[]byte] {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	c, _ := s.clients.LoadOrCompute(ttl, func() *sturdyc.Client[[]byte] {
		var opts []sturdyc.Option
		if s.cfg.EvictionInterval > 0 {
			opts = append(opts, sturdyc.WithEvictionInterval(s.cfg.EvictionInterval))
		}
		return sturdyc.New[[]byte](s.cfg.Capacity, s.cfg.NumShards, ttl, s.cfg.EvictionPercentage, opts...)
	})
	return c
}

func (s *SturdycStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		value []byte
		found bool
	)
	s.clients.Range(func(_ time.Duration, c *sturdyc.Client[[]byte]) bool {
		value, found = c.Get(key)
		return !found
	})
	if !found {
		return nil, ErrMiss
	}
	return value, nil
}

// Set writes the entry into the pool for ttl and drops copies held by other pools.
func (s *SturdycStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	target := s.client(ttl)
	s.clients.Range(func(d time.Duration, c *sturdyc.Client[[]byte]) bool {
		if d != ttl {
			c.Delete(key)
		}
		return true
	})
	target.Set(key, value)
	return nil
}

func (s *SturdycStore) Remove(ctx context.Context, key string) error {
	s.clients.Range(func(_ time.Duration, c *sturdyc.Client[[]byte]) bool {
		c.Delete(key)
		return true
	})
	return nil
}

// RemovePrefix deletes every entry whose key starts with prefix.
func (s *SturdycStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	s.clients.Range(func(_ time.Duration, c *sturdyc.Client[[]byte]) bool {
		for _, key := range c.ScanKeys() {
			if strings.HasPrefix(key, prefix) {
				c.Delete(key)
				removed++
			}
		}
		return true
	})
	return removed, nil
}

// Size reports the number of entries across all pools.
func (s *SturdycStore) Size() int {
	total := 0
	s.clients.Range(func(_ time.Duration, c *sturdyc.Client[[]byte]) bool {
		total += c.Size()
		return true
	})
	return total
}
