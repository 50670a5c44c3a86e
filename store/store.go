// Package store defines the persistence boundary consumed by the mediator's
// base handlers, plus the filter, paging and patch types requests carry.
//
// Store implementations perform exactly one operation per call and report
// failures with the errs taxonomy: errs.NotFound for absent identifiers,
// errs.Conflict for concurrent mutations and errs.Unavailable when the backing
// engine cannot be reached.
//
// Two implementations ship with the module:
//
//   - Memory: a process local store for tests, examples and prototyping
//   - bunstore.Store: an adapter over github.com/goliatone/go-repository-bun
package store

import "context"

// Store is the CRUD surface a model type's base handlers delegate to.
type Store[T any] interface {
	Get(ctx context.Context, id string) (T, error)
	GetMany(ctx context.Context, ids []string) ([]T, error)
	Query(ctx context.Context, filter Filter, page Page) ([]T, int, error)
	Select(ctx context.Context, filter Filter) ([]T, error)
	Create(ctx context.Context, model T) (T, error)
	Update(ctx context.Context, id string, model T) (T, error)
	Upsert(ctx context.Context, id string, model T) (T, error)
	Patch(ctx context.Context, id string, patch Patch) (T, error)
	Delete(ctx context.Context, id string) (T, error)
}

// Versioned is implemented by models that carry an optimistic concurrency token.
// Stores that honour it reject updates whose version does not match the stored one.
type Versioned interface {
	GetVersion() int
	SetVersion(version int)
}

// Page selects a window of a query result.
type Page struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Bounds clamps the page to a result of the given size.
func (p Page) Bounds(size int) (start, end int) {
	start = p.Offset
	if start < 0 {
		start = 0
	}
	if start > size {
		start = size
	}
	end = size
	if p.Limit > 0 && start+p.Limit < size {
		end = start + p.Limit
	}
	return start, end
}

// Patch maps field names to their new values.
type Patch map[string]any
