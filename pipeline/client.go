package pipeline

import (
	"context"

	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/store"
)

// Client is the typed entry point for one registered model.
type Client[T any] struct {
	mediator *Mediator
	desc     capability.Descriptor
}

func (c *Client[T]) Descriptor() capability.Descriptor {
	return c.desc
}

// Chain lists the behavior names wrapped around kind's base handler.
func (c *Client[T]) Chain(kind Kind) []string {
	chain, _ := ChainOf[T](c.mediator, kind)
	return chain.Names()
}

// Send dispatches a raw request.
func (c *Client[T]) Send(ctx context.Context, req Request[T]) (Result[T], error) {
	return Send(ctx, c.mediator, req)
}

func (c *Client[T]) GetByID(ctx context.Context, id string) (T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindGetByID, ID: id})
	return res.Item, err
}

func (c *Client[T]) GetByIDs(ctx context.Context, ids []string) ([]T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindGetByIDs, IDs: ids})
	return res.Items, err
}

// Query returns one page of matches and the total match count.
func (c *Client[T]) Query(ctx context.Context, filter store.Filter, page store.Page) ([]T, int, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindQuery, Filter: filter, Page: page})
	return res.Items, res.Total, err
}

func (c *Client[T]) Select(ctx context.Context, filter store.Filter) ([]T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindSelect, Filter: filter})
	return res.Items, err
}

func (c *Client[T]) Create(ctx context.Context, model T) (T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindCreate, Model: model})
	return res.Item, err
}

func (c *Client[T]) Update(ctx context.Context, id string, model T) (T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindUpdate, ID: id, Model: model})
	return res.Item, err
}

func (c *Client[T]) Upsert(ctx context.Context, id string, model T) (T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindUpsert, ID: id, Model: model})
	return res.Item, err
}

func (c *Client[T]) Patch(ctx context.Context, id string, patch store.Patch) (T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindPatch, ID: id, Patch: patch})
	return res.Item, err
}

func (c *Client[T]) Delete(ctx context.Context, id string) (T, error) {
	res, err := c.Send(ctx, Request[T]{Kind: KindDelete, ID: id})
	return res.Item, err
}
