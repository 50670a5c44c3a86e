// Package bunstore adapts a go-repository-bun repository to store.Store so
// SQL backed models can sit behind the mediator pipeline.
//
// Filters are translated to bun select criteria. Column names resolve through
// the model's bun tags, falling back to the snake_case field name.
package bunstore

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/goliatone/go-repository-mediator/store"
)

// Repository is the subset of repository.Repository[T] the adapter uses.
type Repository[T any] interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error)
	Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Delete(ctx context.Context, record T) error
}

// Store implements store.Store[T] on top of a bun repository.
type Store[T any] struct {
	repo  Repository[T]
	model string
}

var _ store.Store[any] = (*Store[any])(nil)

// New wraps the repository.
func New[T any](repo Repository[T]) *Store[T] {
	return &Store[T]{
		repo:  repo,
		model: capability.Describe[T]().Model,
	}
}

func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		var zero T
		return zero, s.mapError(err, id)
	}
	return record, nil
}

func (s *Store[T]) GetMany(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	records, _, err := s.repo.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? IN (?)", bun.Ident(s.idColumn()), bun.In(ids))
	})
	if err != nil {
		return nil, s.mapError(err, "")
	}
	return records, nil
}

func (s *Store[T]) Query(ctx context.Context, filter store.Filter, page store.Page) ([]T, int, error) {
	criteria, err := s.criteria(filter)
	if err != nil {
		return nil, 0, err
	}
	criteria = append(criteria, pageCriteria(page))

	records, total, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, 0, s.mapError(err, "")
	}
	return records, total, nil
}

func (s *Store[T]) Select(ctx context.Context, filter store.Filter) ([]T, error) {
	criteria, err := s.criteria(filter)
	if err != nil {
		return nil, err
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, s.mapError(err, "")
	}
	return records, nil
}

func (s *Store[T]) Create(ctx context.Context, model T) (T, error) {
	record, err := s.repo.Create(ctx, model)
	if err != nil {
		var zero T
		return zero, s.mapError(err, "")
	}
	return record, nil
}

func (s *Store[T]) Update(ctx context.Context, id string, model T) (T, error) {
	var zero T
	current, err := s.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := s.checkVersion(id, current, model); err != nil {
		return zero, err
	}
	return s.write(ctx, id, model)
}

func (s *Store[T]) Upsert(ctx context.Context, id string, model T) (T, error) {
	var zero T
	if err := store.SetID(model, id); err != nil {
		return zero, errs.Internal(err.Error())
	}
	record, err := s.repo.Upsert(ctx, model)
	if err != nil {
		return zero, s.mapError(err, id)
	}
	return record, nil
}

func (s *Store[T]) Patch(ctx context.Context, id string, patch store.Patch) (T, error) {
	var zero T
	current, err := s.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	patched, err := store.ApplyPatch(current, patch)
	if err != nil {
		return zero, err
	}
	return s.write(ctx, id, patched)
}

// Delete flags soft-deletable models and removes everything else.
func (s *Store[T]) Delete(ctx context.Context, id string) (T, error) {
	var zero T
	current, err := s.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	if sd, ok := any(current).(capability.SoftDeletable); ok {
		if sd.IsDeleted() {
			return zero, errs.NotFound(s.model, id)
		}
		sd.SetDeleted(true)
		return s.write(ctx, id, current)
	}

	if err := s.repo.Delete(ctx, current); err != nil {
		return zero, s.mapError(err, id)
	}
	return current, nil
}

func (s *Store[T]) write(ctx context.Context, id string, model T) (T, error) {
	var zero T
	if err := store.SetID(model, id); err != nil {
		return zero, errs.Internal(err.Error())
	}
	if v, ok := any(model).(store.Versioned); ok {
		v.SetVersion(v.GetVersion() + 1)
	}
	record, err := s.repo.Update(ctx, model)
	if err != nil {
		return zero, s.mapError(err, id)
	}
	return record, nil
}

func (s *Store[T]) checkVersion(id string, current, next T) error {
	nv, ok := any(next).(store.Versioned)
	if !ok {
		return nil
	}
	stored := any(current).(store.Versioned).GetVersion()
	if nv.GetVersion() == 0 {
		nv.SetVersion(stored)
		return nil
	}
	if nv.GetVersion() != stored {
		return errs.Conflict(fmt.Sprintf("%s %q version %d does not match stored version %d", s.model, id, nv.GetVersion(), stored))
	}
	return nil
}

func (s *Store[T]) criteria(filter store.Filter) ([]repository.SelectCriteria, error) {
	var zero T
	out := make([]repository.SelectCriteria, 0, len(filter.Predicates)+1)

	for _, p := range filter.Predicates {
		column, ok := store.Column(zero, p.Field)
		if !ok {
			return nil, errs.ValidationFailed(fmt.Sprintf("unknown field %q on %s", p.Field, s.model))
		}
		op, ok := sqlOperators[p.Op]
		if !ok {
			return nil, errs.ValidationFailed(fmt.Sprintf("unsupported operator %q", p.Op))
		}

		value := p.Value
		if p.Op == store.OpIn {
			value = bun.In(p.Value)
		}
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.? "+op, bun.Ident(column), value)
		})
	}

	if filter.OrderBy != "" {
		desc := filter.OrderBy[0] == '-'
		field := filter.OrderBy
		if desc {
			field = field[1:]
		}
		column, ok := store.Column(zero, field)
		if !ok {
			return nil, errs.ValidationFailed(fmt.Sprintf("unknown order field %q on %s", field, s.model))
		}
		direction := "ASC"
		if desc {
			direction = "DESC"
		}
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.? "+direction, bun.Ident(column))
		})
	}
	return out, nil
}

func (s *Store[T]) idColumn() string {
	var zero T
	if column, ok := store.Column(zero, "id"); ok {
		return column
	}
	return "id"
}

func (s *Store[T]) mapError(err error, id string) error {
	switch {
	case errs.IsNotFound(err):
		return errs.NotFound(s.model, id)
	case errs.IsConflict(err), errs.IsValidation(err):
		return err
	}
	return errs.Unavailable(err, s.model+" repository failure")
}

func pageCriteria(page store.Page) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if page.Limit > 0 {
			q = q.Limit(page.Limit)
		}
		if page.Offset > 0 {
			q = q.Offset(page.Offset)
		}
		return q
	}
}

var sqlOperators = map[store.Op]string{
	store.OpEq:  "= ?",
	"":          "= ?",
	store.OpNe:  "<> ?",
	store.OpGt:  "> ?",
	store.OpGte: ">= ?",
	store.OpLt:  "< ?",
	store.OpLte: "<= ?",
	store.OpIn:  "IN (?)",
}
