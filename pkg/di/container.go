package di

import (
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/cache"
	"github.com/goliatone/go-repository-mediator/config"
	"github.com/goliatone/go-repository-mediator/notify"
	"github.com/goliatone/go-repository-mediator/pipeline"
	"github.com/goliatone/go-repository-mediator/store"
	"github.com/goliatone/go-repository-mediator/store/bunstore"
)

// Container wires the process wide pieces every registered model shares:
// one mediator, one cache store with its invalidator, one event bus and
// one logger.
type Container struct {
	config        config.Config
	logger        zerolog.Logger
	mediator      *pipeline.Mediator
	bus           *notify.Bus
	keySerializer cache.KeySerializer
	invalidator   *cache.Invalidator
	closer        io.Closer

	redisClient redis.UniversalClient
	sinks       []notify.Sink
	logWriter   io.Writer
	loggerSet   bool
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger replaces the logger built from the configured level.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
		c.loggerSet = true
	}
}

// WithLogWriter sends the configured logger to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(c *Container) {
		c.logWriter = w
	}
}

// WithRedisClient uses a caller owned client for the distributed mode.
// The container does not close it.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Container) {
		c.redisClient = client
	}
}

// WithSinks subscribes sinks to the event bus.
func WithSinks(sinks ...notify.Sink) Option {
	return func(c *Container) {
		c.sinks = append(c.sinks, sinks...)
	}
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(c *Container) {
		c.keySerializer = serializer
	}
}

// NewContainer builds the cache store selected by cfg and the shared
// mediator.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		keySerializer: cache.NewDefaultKeySerializer(),
		logWriter:     os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.loggerSet {
		c.logger = cfg.Logger(c.logWriter)
	}

	cacheStore, err := c.buildCacheStore()
	if err != nil {
		return nil, err
	}
	if cacheStore != nil {
		c.invalidator = cache.NewInvalidator(cache.WithKeyTracking(cacheStore))
	}

	c.bus = notify.NewBus(c.sinks)
	c.mediator = pipeline.NewMediator(pipeline.WithMediatorLogger(c.logger))

	c.logger.Debug().
		Str("cache_mode", cfg.CacheMode().String()).
		Int("sinks", len(c.sinks)).
		Msg("container ready")

	return c, nil
}

// NewContainerWithDefaults builds a container from the process environment.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

func (c *Container) buildCacheStore() (cache.Store, error) {
	switch c.config.CacheMode() {
	case pipeline.CacheMemory:
		return cache.NewMemoryStore(c.config.MemoryStore())
	case pipeline.CacheDistributed:
		if c.redisClient != nil {
			return cache.NewRedisStoreWithClient(c.redisClient, c.config.Redis.Prefix), nil
		}
		s, err := cache.NewRedisStore(c.config.RedisStore())
		if err != nil {
			return nil, err
		}
		if closer, ok := s.(io.Closer); ok {
			c.closer = closer
		}
		return s, nil
	}
	return nil, nil
}

// Mediator returns the shared mediator.
func (c *Container) Mediator() *pipeline.Mediator {
	return c.mediator
}

// Bus returns the event bus every registered model publishes to.
func (c *Container) Bus() *notify.Bus {
	return c.bus
}

// Invalidator returns the shared invalidator, nil when caching is disabled.
func (c *Container) Invalidator() *cache.Invalidator {
	return c.invalidator
}

// CacheStore returns the key tracking cache store, nil when caching is disabled.
func (c *Container) CacheStore() cache.Store {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Store()
}

// KeySerializer returns the serializer shared by every registration.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns the loaded configuration.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the root logger.
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// Close releases the redis client when the container created it.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Options returns the pipeline options the container applies to every
// registration, ahead of any caller supplied options.
func Options[T any](c *Container) []pipeline.Option[T] {
	opts := []pipeline.Option[T]{
		pipeline.WithLogger[T](c.logger),
		pipeline.WithSink[T](c.bus),
		pipeline.WithKeySerializer[T](c.keySerializer),
	}

	ttl := c.config.Cache.TTL
	switch c.config.CacheMode() {
	case pipeline.CacheMemory:
		opts = append(opts, pipeline.WithMemoryCache[T](c.CacheStore(), ttl))
	case pipeline.CacheDistributed:
		opts = append(opts, pipeline.WithDistributedCache[T](c.CacheStore(), ttl, c.config.Redis.Timeout))
	}
	if c.invalidator != nil {
		opts = append(opts, pipeline.WithInvalidator[T](c.invalidator))
		if c.config.Cache.Sliding {
			opts = append(opts, pipeline.WithSlidingTTL[T]())
		}
	}
	return opts
}

// Register registers a model with the container's mediator.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: Register[*Order](container, orders, pipeline.WithRules(...))
func Register[T any](c *Container, s store.Store[T], opts ...pipeline.Option[T]) (*pipeline.Client[T], error) {
	return pipeline.Register[T](c.mediator, s, append(Options[T](c), opts...)...)
}

// RegisterRepository registers a go-repository-bun backed model.
func RegisterRepository[T any](c *Container, repo bunstore.Repository[T], opts ...pipeline.Option[T]) (*pipeline.Client[T], error) {
	return Register[T](c, bunstore.New[T](repo), opts...)
}
