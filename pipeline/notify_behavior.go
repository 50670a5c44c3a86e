package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/notify"
	"github.com/goliatone/go-repository-mediator/store"
)

const notifyTimeout = 5 * time.Second

// ChangeNotification invalidates cached entries and publishes a change event
// once the rest of the chain succeeds. Invalidation and publish failures are
// logged and never returned.
//
// Invalidation is synchronous: identifier keys are gone before the call
// returns. Collection entries are dropped as a whole for the model because a
// key cannot tell which filters a record belongs to.
func ChangeNotification[T any](desc capability.Descriptor, opts Options[T]) Behavior[T] {
	var (
		keys        = opts.Keys()
		invalidator = opts.Invalidator
		sink        = opts.Sink
		clock       = opts.Clock
		logger      = opts.Logger.With().Str("behavior", NameChangeNotification).Logger()
	)

	return NewBehavior[T](NameChangeNotification, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		res, err := next(ctx, req)
		if err != nil {
			return res, err
		}

		ids := affectedIDs(req, res)
		event := notify.NewEvent(desc.Model, req.Kind.Op(), eventTenant(ctx, req, res, desc), ambientActor(ctx, req), clock(), ids...)

		// the mutation is committed; a caller cancelling now must not leave stale entries behind
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if invalidator != nil {
			if err := invalidator.Model(bg, keys, ids...); err != nil {
				logEvent(logger.Error().Err(err), event).Msg("cache invalidation failed")
			}
		}
		if sink != nil {
			if err := notify.SafePublish(bg, sink, event); err != nil {
				logEvent(logger.Error().Err(err), event).Msg("change event publish failed")
			}
		}
		return res, nil
	})
}

func affectedIDs[T any](req Request[T], res Result[T]) []string {
	var ids []string
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	add(req.ID)
	if !isNil(res.Item) {
		if id, ok := store.IDOf(res.Item); ok {
			add(id)
		}
	}
	return ids
}

func eventTenant[T any](ctx context.Context, req Request[T], res Result[T], desc capability.Descriptor) string {
	if desc.HasTenant && !isNil(res.Item) {
		if tenant, _ := tenantOf(res.Item, desc); tenant != "" {
			return tenant
		}
	}
	return ambientTenant(ctx, req)
}

func logEvent(e *zerolog.Event, event notify.Event) *zerolog.Event {
	return e.Str("event_id", event.ID).Str("topic", event.Topic())
}
