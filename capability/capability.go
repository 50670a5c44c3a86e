package capability

import (
	"reflect"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Capability names an optional trait a model type can declare.
type Capability string

const (
	Tenant  Capability = "tenant"
	Created Capability = "created"
	Updated Capability = "updated"
	Deleted Capability = "deleted"
)

// Default field names used when behaviors add predicates to a query.
const (
	DefaultTenantField  = "tenant_id"
	DefaultDeletedField = "deleted"
)

// Identifiable is implemented by models that expose their identifier.
type Identifiable interface {
	GetID() string
	SetID(id string)
}

// TenantScoped is implemented by models isolated per tenant.
type TenantScoped interface {
	GetTenantID() string
	SetTenantID(tenant string)
}

// CreatedTracker is implemented by models that record creation time and actor.
type CreatedTracker interface {
	SetCreated(at time.Time, by string)
}

// UpdatedTracker is implemented by models that record update time and actor.
type UpdatedTracker interface {
	SetUpdated(at time.Time, by string)
}

// SoftDeletable is implemented by models flagged as deleted instead of removed.
type SoftDeletable interface {
	IsDeleted() bool
	SetDeleted(deleted bool)
}

// Descriptor records the capabilities declared by a model type.
// It is computed once per type and never changes afterwards.
type Descriptor struct {
	Model         string
	HasTenant     bool
	TracksCreated bool
	TracksUpdated bool
	TracksDeleted bool
	TenantField   string
	DeletedField  string
}

// Has reports whether the descriptor declares the named capability.
func (d Descriptor) Has(c Capability) bool {
	switch c {
	case Tenant:
		return d.HasTenant
	case Created:
		return d.TracksCreated
	case Updated:
		return d.TracksUpdated
	case Deleted:
		return d.TracksDeleted
	default:
		return false
	}
}

// Capabilities lists the declared capabilities in a stable order.
func (d Descriptor) Capabilities() []Capability {
	var out []Capability
	for _, c := range []Capability{Tenant, Created, Updated, Deleted} {
		if d.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (d Descriptor) withDefaults() Descriptor {
	if d.TenantField == "" {
		d.TenantField = DefaultTenantField
	}
	if d.DeletedField == "" {
		d.DeletedField = DefaultDeletedField
	}
	return d
}

var descriptors = xsync.NewMapOf[reflect.Type, Descriptor]()

// Describe returns the memoized descriptor for T, inspecting the type on first use.
// Models are expected to be pointer types so capability setters mutate the payload.
func Describe[T any]() Descriptor {
	typ := reflect.TypeFor[T]()
	d, _ := descriptors.LoadOrCompute(typ, func() Descriptor {
		return inspect[T](typ)
	})
	return d
}

// Register declares the descriptor for T explicitly. It must run before the
// first Describe call for T; once a descriptor exists it is returned unchanged
// and registered reports false.
func Register[T any](d Descriptor) (actual Descriptor, registered bool) {
	typ := reflect.TypeFor[T]()
	if d.Model == "" {
		d.Model = ModelName(typ)
	}
	actual, loaded := descriptors.LoadOrStore(typ, d.withDefaults())
	return actual, !loaded
}

// HasCapability answers whether model type T declares the capability.
func HasCapability[T any](c Capability) bool {
	return Describe[T]().Has(c)
}

// ModelName derives the cache and event namespace for a model type.
func ModelName(typ reflect.Type) string {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	name := typ.Name()
	if name == "" {
		name = typ.String()
	}
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return toSnake(name)
}

func inspect[T any](typ reflect.Type) Descriptor {
	var zero T
	v := any(zero)
	if v == nil {
		// interface typed models carry no static method set to inspect
		return Descriptor{Model: ModelName(typ)}.withDefaults()
	}

	_, tenant := v.(TenantScoped)
	_, created := v.(CreatedTracker)
	_, updated := v.(UpdatedTracker)
	_, deleted := v.(SoftDeletable)

	return Descriptor{
		Model:         ModelName(typ),
		HasTenant:     tenant,
		TracksCreated: created,
		TracksUpdated: updated,
		TracksDeleted: deleted,
	}.withDefaults()
}
