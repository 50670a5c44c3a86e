package pipeline

import (
	"context"

	"github.com/goliatone/go-repository-mediator/store"
)

// Request is the single envelope every kind travels in. Only the fields
// relevant to Kind are read. Requests are passed by value; behaviors that
// narrow one hand a modified copy to the next handler.
type Request[T any] struct {
	Kind           Kind
	ID             string
	IDs            []string
	Model          T
	Filter         store.Filter
	Page           store.Page
	Patch          store.Patch
	Tenant         string
	Actor          string
	IncludeDeleted bool
}

// Result carries a single item for identifier and command kinds, or a list
// and total for collection kinds.
type Result[T any] struct {
	Item  T   `msgpack:"item"`
	Items []T `msgpack:"items"`
	Total int `msgpack:"total"`
}

// Handler processes a request. Base handlers and composed chains share the type.
type Handler[T any] func(ctx context.Context, req Request[T]) (Result[T], error)

// Behavior intercepts a request. Pre-logic runs before calling next,
// post-logic after it returns.
type Behavior[T any] interface {
	Name() string
	Handle(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error)
}

// BehaviorFunc is the function form of Behavior.Handle.
type BehaviorFunc[T any] func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error)

type namedBehavior[T any] struct {
	name string
	fn   BehaviorFunc[T]
}

// NewBehavior names fn so it can take part in a chain.
func NewBehavior[T any](name string, fn BehaviorFunc[T]) Behavior[T] {
	return namedBehavior[T]{name: name, fn: fn}
}

func (b namedBehavior[T]) Name() string { return b.name }

func (b namedBehavior[T]) Handle(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
	return b.fn(ctx, req, next)
}
