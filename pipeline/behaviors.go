package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/goliatone/go-repository-mediator/errs"
	"github.com/goliatone/go-repository-mediator/store"
)

// Behavior names as reported by Chain.Names.
const (
	NameTenantDefault      = "tenant_default"
	NameTenantAuthenticate = "tenant_authenticate"
	NameTenantFilter       = "tenant_filter"
	NameSoftDeleteFilter   = "soft_delete_filter"
	NameValidation         = "validation"
	NameTracking           = "tracking"
	NameMemoryCache        = "memory_cache"
	NameDistributedCache   = "distributed_cache"
	NameChangeNotification = "change_notification"
)

// TenantDefault fills an unset payload tenant with the ambient tenant. An
// explicit payload tenant is left alone; TenantAuthenticate rejects mismatches.
func TenantDefault[T any](desc capability.Descriptor) Behavior[T] {
	return NewBehavior[T](NameTenantDefault, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		tenant := ambientTenant(ctx, req)
		if tenant == "" || isNil(req.Model) {
			return next(ctx, req)
		}
		if current, _ := tenantOf(req.Model, desc); current != "" {
			return next(ctx, req)
		}

		model := store.Clone(req.Model)
		if err := setTenant(model, desc, tenant); err != nil {
			return Result[T]{}, errs.Internal(err.Error())
		}
		req.Model = model
		return next(ctx, req)
	})
}

// TenantAuthenticate rejects commands whose payload tenant differs from the
// ambient tenant, or that carry no ambient tenant at all.
func TenantAuthenticate[T any](desc capability.Descriptor) Behavior[T] {
	return NewBehavior[T](NameTenantAuthenticate, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		tenant := ambientTenant(ctx, req)
		if tenant == "" {
			return Result[T]{}, errs.AuthorizationFailed(desc.Model + " " + req.Kind.String() + " requires a tenant")
		}
		if isNil(req.Model) {
			return next(ctx, req)
		}
		if current, _ := tenantOf(req.Model, desc); current != tenant {
			return Result[T]{}, errs.AuthorizationFailed(
				fmt.Sprintf("%s tenant %q does not match %q", desc.Model, current, tenant),
			)
		}
		return next(ctx, req)
	})
}

// TenantFilter narrows queries to the ambient tenant. Existing predicates are
// kept and combined with AND.
func TenantFilter[T any](desc capability.Descriptor) Behavior[T] {
	return NewBehavior[T](NameTenantFilter, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		tenant := ambientTenant(ctx, req)
		if tenant == "" {
			return Result[T]{}, errs.AuthorizationFailed(desc.Model + " " + req.Kind.String() + " requires a tenant")
		}
		req.Filter = req.Filter.And(store.Eq(desc.TenantField, tenant))
		return next(ctx, req)
	})
}

// SoftDeleteFilter hides deleted records unless the request or its context
// opts in.
func SoftDeleteFilter[T any](desc capability.Descriptor) Behavior[T] {
	return NewBehavior[T](NameSoftDeleteFilter, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		if req.IncludeDeleted || IncludeDeletedFromContext(ctx) {
			return next(ctx, req)
		}
		req.Filter = req.Filter.And(store.Eq(desc.DeletedField, false))
		return next(ctx, req)
	})
}

// Validation runs the payload's Validate method, when it implements
// validation.Validatable, then every rule in order. The first failure is
// returned as a ValidationFailed error and next is not called.
func Validation[T any](desc capability.Descriptor, rules ...Rule[T]) Behavior[T] {
	return NewBehavior[T](NameValidation, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		if isNil(req.Model) {
			return Result[T]{}, errs.ValidationFailed(desc.Model + " payload is required")
		}

		message := desc.Model + " validation failed"
		if v, ok := any(req.Model).(validation.Validatable); ok {
			if err := v.Validate(); err != nil {
				return Result[T]{}, errs.FromValidation(err, message)
			}
		}
		for _, rule := range rules {
			if err := rule(ctx, req.Model); err != nil {
				return Result[T]{}, asValidation(err, message)
			}
		}
		return next(ctx, req)
	})
}

func asValidation(err error, message string) error {
	if errs.IsValidation(err) {
		return err
	}
	var ge *goerrors.Error
	if goerrors.As(err, &ge) {
		// categorized errors from rules keep their category
		return err
	}
	return errs.FromValidation(err, message)
}

// Tracking stamps creation or update metadata on the payload. Models that
// declare the capability without implementing the tracker interface are
// passed through unchanged.
func Tracking[T any](kind Kind, clock func() time.Time) Behavior[T] {
	return NewBehavior[T](NameTracking, func(ctx context.Context, req Request[T], next Handler[T]) (Result[T], error) {
		if isNil(req.Model) {
			return next(ctx, req)
		}

		model := store.Clone(req.Model)
		at, actor := clock(), ambientActor(ctx, req)
		switch kind {
		case KindCreate:
			if m, ok := any(model).(capability.CreatedTracker); ok {
				m.SetCreated(at, actor)
			}
		default:
			if m, ok := any(model).(capability.UpdatedTracker); ok {
				m.SetUpdated(at, actor)
			}
		}
		req.Model = model
		return next(ctx, req)
	})
}

func tenantOf(model any, desc capability.Descriptor) (string, bool) {
	if m, ok := model.(capability.TenantScoped); ok {
		return m.GetTenantID(), true
	}
	value, ok := store.FieldValue(model, desc.TenantField)
	if !ok {
		return "", false
	}
	tenant, ok := value.(string)
	return tenant, ok
}

func setTenant(model any, desc capability.Descriptor, tenant string) error {
	if m, ok := model.(capability.TenantScoped); ok {
		m.SetTenantID(tenant)
		return nil
	}
	return store.SetField(model, desc.TenantField, tenant)
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
