package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/goliatone/go-repository-mediator/store"
)

type routeKey struct {
	kind Kind
	typ  reflect.Type
}

type route[T any] struct {
	chain  Chain[T]
	handle Handler[T]
}

// Mediator routes requests to the handler composed for their kind and model
// type. Routes are written once by Register and only read afterwards.
type Mediator struct {
	routes *xsync.MapOf[routeKey, any]
	models *xsync.MapOf[reflect.Type, capability.Descriptor]
	names  *xsync.MapOf[string, reflect.Type]
	logger zerolog.Logger
}

// MediatorOption configures a Mediator.
type MediatorOption func(*Mediator)

// WithMediatorLogger sets the logger used for registration messages.
func WithMediatorLogger(logger zerolog.Logger) MediatorOption {
	return func(m *Mediator) {
		m.logger = logger
	}
}

// NewMediator creates a mediator with no registered models.
func NewMediator(opts ...MediatorOption) *Mediator {
	m := &Mediator{
		routes: xsync.NewMapOf[routeKey, any](),
		models: xsync.NewMapOf[reflect.Type, capability.Descriptor](),
		names:  xsync.NewMapOf[string, reflect.Type](),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register assembles and composes the chains of every kind for model type T
// over s. A model type can be registered once per mediator, and its model name,
// which namespaces cache keys and events, must not belong to another type.
// Same-named types from different packages need a distinct Model declared
// with capability.Register.
func Register[T any](m *Mediator, s store.Store[T], opts ...Option[T]) (*Client[T], error) {
	if m == nil || s == nil {
		return nil, errs.Internal("register requires a mediator and a store")
	}

	desc := capability.Describe[T]()
	o := NewOptions(desc, opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	typ := reflect.TypeFor[T]()
	if owner, loaded := m.names.LoadOrStore(desc.Model, typ); loaded {
		if owner == typ {
			return nil, errs.Internal(fmt.Sprintf("%s is already registered", desc.Model))
		}
		return nil, errs.Conflict(fmt.Sprintf("model name %q of %s is already used by %s", desc.Model, typ, owner))
	}
	m.models.Store(typ, desc)

	base := BaseHandler(s)
	for _, kind := range Kinds() {
		chain := Assemble(kind, desc, o)
		m.routes.Store(routeKey{kind: kind, typ: typ}, route[T]{chain: chain, handle: Compose(chain, base)})
	}

	m.logger.Debug().
		Str("model", desc.Model).
		Strs("capabilities", capabilityNames(desc)).
		Str("cache", o.Cache.String()).
		Msg("model registered")

	return &Client[T]{mediator: m, desc: desc}, nil
}

// Send dispatches req to the handler registered for its kind and T.
func Send[T any](ctx context.Context, m *Mediator, req Request[T]) (Result[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r, ok := lookup[T](m, req.Kind)
	if !ok {
		return Result[T]{}, errs.Internal(fmt.Sprintf("no %s handler registered for %s", req.Kind, reflect.TypeFor[T]()))
	}
	return r.handle(ctx, req)
}

// ChainOf returns the chain registered for kind and T.
func ChainOf[T any](m *Mediator, kind Kind) (Chain[T], bool) {
	r, ok := lookup[T](m, kind)
	return r.chain, ok
}

// Models lists the registered model names.
func (m *Mediator) Models() []string {
	var names []string
	m.models.Range(func(_ reflect.Type, desc capability.Descriptor) bool {
		names = append(names, desc.Model)
		return true
	})
	sort.Strings(names)
	return names
}

func lookup[T any](m *Mediator, kind Kind) (route[T], bool) {
	if m == nil {
		return route[T]{}, false
	}
	v, ok := m.routes.Load(routeKey{kind: kind, typ: reflect.TypeFor[T]()})
	if !ok {
		return route[T]{}, false
	}
	r, ok := v.(route[T])
	return r, ok
}

func capabilityNames(desc capability.Descriptor) []string {
	caps := desc.Capabilities()
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}
