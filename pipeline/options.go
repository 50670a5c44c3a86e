package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/cache"
	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/goliatone/go-repository-mediator/notify"
)

// CacheMode selects the cache behavior attached to query chains.
type CacheMode uint8

const (
	CacheDisabled CacheMode = iota
	CacheMemory
	CacheDistributed
)

func (m CacheMode) String() string {
	switch m {
	case CacheMemory:
		return "memory"
	case CacheDistributed:
		return "distributed"
	default:
		return "disabled"
	}
}

// Default registration settings.
const (
	DefaultTTL          = 5 * time.Minute
	DefaultCacheTimeout = 200 * time.Millisecond
)

// Rule is a registration supplied validation rule run after the payload's own
// Validate method.
type Rule[T any] func(ctx context.Context, model T) error

// Options configure the behaviors attached to one model registration.
type Options[T any] struct {
	Cache         CacheMode
	CacheStore    cache.Store
	TTL           time.Duration
	Sliding       bool
	Timeout       time.Duration
	Codec         cache.Codec
	KeySerializer cache.KeySerializer
	Invalidator   *cache.Invalidator
	Rules         []Rule[T]
	Clock         func() time.Time
	Logger        zerolog.Logger
	Sink          notify.Sink

	keys cache.KeyBuilder
}

// Option mutates registration options.
type Option[T any] func(*Options[T])

// WithMemoryCache caches query results in an in-process store.
func WithMemoryCache[T any](store cache.Store, ttl time.Duration) Option[T] {
	return func(o *Options[T]) {
		o.Cache = CacheMemory
		o.CacheStore = store
		if ttl > 0 {
			o.TTL = ttl
		}
	}
}

// WithDistributedCache caches query results in an external store. Every call
// to the store is bounded by timeout; failures are treated as misses.
func WithDistributedCache[T any](store cache.Store, ttl, timeout time.Duration) Option[T] {
	return func(o *Options[T]) {
		o.Cache = CacheDistributed
		o.CacheStore = store
		if ttl > 0 {
			o.TTL = ttl
		}
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithSlidingTTL extends an entry's lifetime every time it is read.
func WithSlidingTTL[T any]() Option[T] {
	return func(o *Options[T]) {
		o.Sliding = true
	}
}

// WithInvalidator shares an invalidator, and the store behind it, between
// registrations.
func WithInvalidator[T any](inv *cache.Invalidator) Option[T] {
	return func(o *Options[T]) {
		o.Invalidator = inv
	}
}

// WithCodec overrides how cached values are encoded.
func WithCodec[T any](codec cache.Codec) Option[T] {
	return func(o *Options[T]) {
		if codec != nil {
			o.Codec = codec
		}
	}
}

// WithKeySerializer overrides how request arguments render into cache keys.
func WithKeySerializer[T any](serializer cache.KeySerializer) Option[T] {
	return func(o *Options[T]) {
		if serializer != nil {
			o.KeySerializer = serializer
		}
	}
}

// WithRules appends validation rules.
func WithRules[T any](rules ...Rule[T]) Option[T] {
	return func(o *Options[T]) {
		o.Rules = append(o.Rules, rules...)
	}
}

// WithClock overrides the time source used for tracking and events.
func WithClock[T any](clock func() time.Time) Option[T] {
	return func(o *Options[T]) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

// WithLogger sets the logger shared by the behaviors of a registration.
func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(o *Options[T]) {
		o.Logger = logger
	}
}

// WithSink sets where change events are published.
func WithSink[T any](sink notify.Sink) Option[T] {
	return func(o *Options[T]) {
		if sink != nil {
			o.Sink = sink
		}
	}
}

// NewOptions applies opts over the defaults and derives the cache key builder
// and invalidator for desc. A store that cannot remove by prefix is wrapped
// with key tracking so collection entries can still be invalidated.
func NewOptions[T any](desc capability.Descriptor, opts ...Option[T]) Options[T] {
	o := Options[T]{
		TTL:     DefaultTTL,
		Timeout: DefaultCacheTimeout,
		Codec:   cache.DefaultCodec,
		Clock:   func() time.Time { return time.Now().UTC() },
		Logger:  zerolog.Nop(),
		Sink:    notify.Discard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	o.keys = cache.NewKeyBuilder(desc.Model, o.KeySerializer)
	o.Logger = o.Logger.With().Str("model", desc.Model).Logger()

	switch {
	case o.Invalidator != nil:
		o.CacheStore = o.Invalidator.Store()
	case o.CacheStore != nil:
		o.CacheStore = cache.WithKeyTracking(o.CacheStore)
		o.Invalidator = cache.NewInvalidator(o.CacheStore)
	}
	return o
}

// Keys returns the cache key builder of the registration.
func (o Options[T]) Keys() cache.KeyBuilder {
	return o.keys
}

// Validate reports wiring errors detectable at registration.
func (o Options[T]) Validate() error {
	if o.Cache != CacheDisabled && o.CacheStore == nil {
		return errs.Internal(o.Cache.String() + " cache enabled without a store")
	}
	if o.Cache == CacheDistributed && o.Timeout <= 0 {
		return errs.Internal("distributed cache requires a positive timeout")
	}
	return nil
}
