package pipeline

import "context"

// Chain is an ordered list of behaviors bound to one kind and model type.
type Chain[T any] []Behavior[T]

// Names lists the behavior names in execution order.
func (c Chain[T]) Names() []string {
	out := make([]string, len(c))
	for i, b := range c {
		out[i] = b.Name()
	}
	return out
}

// Compose folds the chain around base so chain[0] runs outermost. The result
// is stateless and safe for concurrent use when the behaviors are.
func Compose[T any](chain Chain[T], base Handler[T]) Handler[T] {
	h := guard(base)
	for i := len(chain) - 1; i >= 0; i-- {
		behavior, next := chain[i], h
		h = func(ctx context.Context, req Request[T]) (Result[T], error) {
			return behavior.Handle(ctx, req, next)
		}
	}
	return h
}

// Execute composes the chain and runs req through it.
func Execute[T any](ctx context.Context, chain Chain[T], base Handler[T], req Request[T]) (Result[T], error) {
	return Compose(chain, base)(ctx, req)
}

// guard stops cancelled requests before they reach the store.
func guard[T any](base Handler[T]) Handler[T] {
	return func(ctx context.Context, req Request[T]) (Result[T], error) {
		if err := ctx.Err(); err != nil {
			return Result[T]{}, err
		}
		return base(ctx, req)
	}
}
