package pipeline

import (
	"context"

	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/goliatone/go-repository-mediator/store"
)

// BaseHandler maps every kind to exactly one store call.
func BaseHandler[T any](s store.Store[T]) Handler[T] {
	return func(ctx context.Context, req Request[T]) (Result[T], error) {
		var (
			res Result[T]
			err error
		)

		switch req.Kind {
		case KindGetByID:
			res.Item, err = s.Get(ctx, req.ID)
		case KindGetByIDs:
			res.Items, err = s.GetMany(ctx, req.IDs)
			res.Total = len(res.Items)
		case KindQuery:
			res.Items, res.Total, err = s.Query(ctx, req.Filter, req.Page)
		case KindSelect:
			res.Items, err = s.Select(ctx, req.Filter)
			res.Total = len(res.Items)
		case KindCreate:
			res.Item, err = s.Create(ctx, req.Model)
		case KindUpdate:
			res.Item, err = s.Update(ctx, req.ID, req.Model)
		case KindUpsert:
			res.Item, err = s.Upsert(ctx, req.ID, req.Model)
		case KindPatch:
			res.Item, err = s.Patch(ctx, req.ID, req.Patch)
		case KindDelete:
			res.Item, err = s.Delete(ctx, req.ID)
		default:
			return Result[T]{}, errs.Internal("unsupported request kind " + req.Kind.String())
		}

		if err != nil {
			return Result[T]{}, err
		}
		return res, nil
	}
}
