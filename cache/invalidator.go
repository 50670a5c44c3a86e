package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// ErrPrefixUnsupported is returned when a prefix removal reaches a store that
// neither scans keys nor tracks them.
var ErrPrefixUnsupported = errors.New("cache: store cannot remove keys by prefix")

// Invalidator removes entries made stale by a mutation.
//
// It also keeps a generation counter per model. Model bumps the counter before
// removing anything, so a reader that sampled the generation before the
// mutation can tell its fetched value may predate the invalidation and skip
// writing it back. Model also counts itself as pending until its removals
// finish; see Snapshot.
type Invalidator struct {
	store       Store
	generations *xsync.MapOf[string, uint64]
	pending     *xsync.MapOf[string, int64]
}

// NewInvalidator creates an invalidator over store. Wrap the store with
// WithKeyTracking first when it cannot remove by prefix.
func NewInvalidator(store Store) *Invalidator {
	return &Invalidator{
		store:       store,
		generations: xsync.NewMapOf[string, uint64](),
		pending:     xsync.NewMapOf[string, int64](),
	}
}

// Store returns the store the invalidator removes from.
func (i *Invalidator) Store() Store {
	return i.store
}

// Generation returns the current invalidation generation of model.
func (i *Invalidator) Generation(model string) uint64 {
	gen, _ := i.generations.Load(model)
	return gen
}

// Snapshot returns the generation of model and whether no invalidation of
// model is in flight. A settled snapshot whose generation is unchanged after a
// write proves no invalidation overlapped the write, even one that began before
// the entry was read.
func (i *Invalidator) Snapshot(model string) (generation uint64, settled bool) {
	generation = i.Generation(model)
	n, _ := i.pending.Load(model)
	return generation, n == 0
}

func (i *Invalidator) bump(model string) {
	i.generations.Compute(model, func(old uint64, _ bool) (uint64, bool) {
		return old + 1, false
	})
}

func (i *Invalidator) track(model string, delta int64) {
	i.pending.Compute(model, func(old int64, _ bool) (int64, bool) {
		n := old + delta
		return n, n == 0
	})
}

// Invalidate removes the exact keys, then every key under the prefixes.
// All removals are attempted; failures are joined.
func (i *Invalidator) Invalidate(ctx context.Context, keys, prefixes []string) error {
	var errs []error
	for _, key := range keys {
		if err := i.store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}

	if len(prefixes) > 0 {
		remover, ok := i.store.(PrefixRemover)
		if !ok {
			errs = append(errs, ErrPrefixUnsupported)
			return errors.Join(errs...)
		}
		for _, prefix := range prefixes {
			if _, err := remover.RemovePrefix(ctx, prefix); err != nil {
				errs = append(errs, fmt.Errorf("remove prefix %s: %w", prefix, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Model invalidates the identifier keys of ids and every collection entry of the model.
func (i *Invalidator) Model(ctx context.Context, keys KeyBuilder, ids ...string) error {
	i.track(keys.Model(), 1)
	defer i.track(keys.Model(), -1)
	i.bump(keys.Model())

	exact := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			exact = append(exact, keys.ByID(id))
		}
	}
	return i.Invalidate(ctx, exact, keys.CollectionPrefixes())
}
