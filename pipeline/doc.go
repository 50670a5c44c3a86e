// Package pipeline dispatches CRUD requests through behavior chains assembled
// from a model type's declared capabilities.
//
// # Overview
//
// Every model type is registered once against a Mediator. Registration reads
// the type's capability.Descriptor, assembles one Chain per request Kind and
// composes it around a base handler that performs exactly one store call.
// Requests are then routed by (Kind, model type) to the composed handler.
//
//	m := pipeline.NewMediator()
//	orders, err := pipeline.Register[*Order](m, store.NewMemory[*Order](),
//		pipeline.WithMemoryCache[*Order](memStore, time.Minute),
//		pipeline.WithSink[*Order](bus),
//	)
//
//	ctx = pipeline.WithTenant(ctx, "T1")
//	order, err := orders.Create(ctx, &Order{Total: 10})
//	order, err = orders.GetByID(ctx, order.ID)
//
// # Chains
//
// Behaviors follow onion semantics. chain[0] runs its pre-phase first and its
// post-phase last:
//
//	create on a tenant scoped, created tracking model:
//	  tenant_default -> tenant_authenticate -> tracking -> validation -> change_notification -> store
//
// See Assemble for the full policy table. Client.Chain reports the names of
// the behaviors attached to a kind.
//
// # Context
//
// The ambient tenant, actor and soft-delete override travel in the context:
//
//	ctx = pipeline.WithTenant(ctx, "T1")
//	ctx = pipeline.WithActor(ctx, "alice")
//	ctx = pipeline.WithIncludeDeleted(ctx)
//
// Request.Tenant and Request.Actor take precedence when set.
//
// # Caching
//
// Query kinds go through a cache-aside behavior when a cache is configured.
// Filters are applied before the cache so keys reflect the narrowed query.
// The distributed variant bounds every store call with a timeout and fails
// open: an unreachable store behaves like an empty one.
//
// Mutations invalidate the identifier keys they touch and every collection
// entry of the model. Collection results may be stale between a mutation's
// commit and the end of its invalidation; identifier lookups are not.
// Concurrent misses on one key are last-write-wins.
//
// # Errors
//
// Validation and authorization failures short-circuit the chain. Store errors
// propagate unchanged. Cache and notification failures are logged and never
// reach the caller.
package pipeline
