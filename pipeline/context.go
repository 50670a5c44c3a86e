package pipeline

import "context"

type (
	tenantContextKey         struct{}
	actorContextKey          struct{}
	includeDeletedContextKey struct{}
)

// WithTenant attaches the ambient tenant used by tenant behaviors when a
// request does not name one.
func WithTenant(ctx context.Context, tenant string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if tenant == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext returns the ambient tenant, or "" when none is set.
func TenantFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tenant, _ := ctx.Value(tenantContextKey{}).(string)
	return tenant
}

// WithActor attaches the identity recorded by tracking behaviors.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor attached by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}

// WithIncludeDeleted opts the queries made with ctx out of soft-delete filtering.
func WithIncludeDeleted(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, includeDeletedContextKey{}, true)
}

// IncludeDeletedFromContext reports whether ctx opts out of soft-delete filtering.
func IncludeDeletedFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	include, _ := ctx.Value(includeDeletedContextKey{}).(bool)
	return include
}

func ambientTenant[T any](ctx context.Context, req Request[T]) string {
	if req.Tenant != "" {
		return req.Tenant
	}
	return TenantFromContext(ctx)
}

func ambientActor[T any](ctx context.Context, req Request[T]) string {
	if req.Actor != "" {
		return req.Actor
	}
	return ActorFromContext(ctx)
}
