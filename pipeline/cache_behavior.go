package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/cache"
)

// cacheAside implements both cache variants. The distributed variant bounds
// every store call with timeout and logs store failures at warn; both treat
// failures as misses.
//
// Concurrent misses on one key race to populate it and the last write wins.
// Entries are only written when the model's invalidation generation did not
// move while the result was being fetched, so a read that overlaps a mutation
// never stores the value the mutation replaced. Sliding hits follow the same
// rule for the rewrite a touch performs on stores without native touch.
type cacheAside[T any] struct {
	name        string
	distributed bool
	store       cache.Store
	keys        cache.KeyBuilder
	codec       cache.Codec
	invalidator *cache.Invalidator
	ttl         time.Duration
	sliding     bool
	timeout     time.Duration
	logger      zerolog.Logger
}

// MemoryCache returns the in-process cache-aside behavior.
func MemoryCache[T any](opts Options[T]) Behavior[T] {
	return newCacheAside(NameMemoryCache, false, opts)
}

// DistributedCache returns the fail-open cache-aside behavior for external stores.
func DistributedCache[T any](opts Options[T]) Behavior[T] {
	return newCacheAside(NameDistributedCache, true, opts)
}

func newCacheAside[T any](name string, distributed bool, opts Options[T]) *cacheAside[T] {
	return &cacheAside[T]{
		name:        name,
		distributed: distributed,
		store:       opts.CacheStore,
		keys:        opts.Keys(),
		codec:       opts.Codec,
		invalidator: opts.Invalidator,
		ttl:         opts.TTL,
		sliding:     opts.Sliding,
		timeout:     opts.Timeout,
		logger:      opts.Logger.With().Str("behavior", name).Logger(),
	}
}

func (c *cacheAside[T]) Name() string { return c.name }

func (c *cacheAside[T]) Handle(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
	key, ok := c.key(req)
	if !ok {
		return next(ctx, req)
	}

	if res, hit := c.lookup(ctx, key); hit {
		return res, nil
	}

	generation := c.generation()
	res, err := next(ctx, req)
	if err != nil {
		return res, err
	}
	if ctx.Err() != nil {
		return res, nil
	}
	if generation != c.generation() {
		c.logger.Debug().Str("key", key).Msg("cache write skipped after invalidation")
		return res, nil
	}
	c.populate(ctx, key, res, generation)
	return res, nil
}

func (c *cacheAside[T]) key(req Request[T]) (string, bool) {
	switch req.Kind {
	case KindGetByID:
		return c.keys.ByID(req.ID), req.ID != ""
	case KindGetByIDs:
		return c.keys.ByIDs(req.IDs), true
	case KindQuery:
		return c.keys.Query(req.Filter, req.Page), true
	case KindSelect:
		return c.keys.Select(req.Filter), true
	}
	return "", false
}

func (c *cacheAside[T]) lookup(ctx context.Context, key string) (Result[T], bool) {
	var res Result[T]

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	var (
		data []byte
		err  error
	)
	generation, settled := c.snapshot()
	touch := c.sliding && settled
	if touch {
		data, err = cache.GetSliding(callCtx, c.store, key, c.ttl)
	} else {
		data, err = c.store.Get(callCtx, key)
	}

	switch {
	case err == nil:
	case cache.IsMiss(err):
		c.logger.Debug().Str("key", key).Msg("cache miss")
		return res, false
	default:
		c.failure(err).Str("key", key).Msg("cache get failed, treating as miss")
		return res, false
	}

	// a touch that rewrites the entry can resurrect one removed after the read
	if touch && generation != c.generation() {
		if err := c.store.Remove(callCtx, key); err != nil {
			c.failure(err).Str("key", key).Msg("cache remove after invalidation failed")
		}
		c.logger.Debug().Str("key", key).Msg("cache hit invalidated during touch, treating as miss")
		return res, false
	}

	if err := c.codec.Unmarshal(data, &res); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry undecodable, treating as miss")
		return Result[T]{}, false
	}
	c.logger.Debug().Str("key", key).Msg("cache hit")
	return res, true
}

// populate writes res under key. An invalidation that lands between the
// generation check and the write is detected afterwards and the entry removed.
func (c *cacheAside[T]) populate(ctx context.Context, key string, res Result[T], generation uint64) {
	data, err := c.codec.Marshal(res)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry unencodable")
		return
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	if err := c.store.Set(callCtx, key, data, c.ttl); err != nil {
		c.failure(err).Str("key", key).Msg("cache set failed")
		return
	}
	if generation != c.generation() {
		if err := c.store.Remove(callCtx, key); err != nil {
			c.failure(err).Str("key", key).Msg("cache remove after invalidation failed")
		}
	}
}

func (c *cacheAside[T]) generation() uint64 {
	if c.invalidator == nil {
		return 0
	}
	return c.invalidator.Generation(c.keys.Model())
}

// snapshot reports whether a sliding touch may rewrite entries right now.
// While an invalidation of the model is in flight, hits are read without
// touching.
func (c *cacheAside[T]) snapshot() (uint64, bool) {
	if c.invalidator == nil {
		return 0, true
	}
	return c.invalidator.Snapshot(c.keys.Model())
}

func (c *cacheAside[T]) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.distributed && c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *cacheAside[T]) failure(err error) *zerolog.Event {
	if c.distributed {
		return c.logger.Warn().Err(err)
	}
	return c.logger.Debug().Err(err)
}
