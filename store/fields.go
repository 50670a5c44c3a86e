package store

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-repository-mediator/capability"
	"github.com/puzpuzpuz/xsync/v3"
)

// fieldIndex maps normalised names (Go name, json, bun and msgpack tags) to struct field indexes.
type fieldIndex map[string][]int

var fieldIndexes = xsync.NewMapOf[reflect.Type, fieldIndex]()

func indexFor(typ reflect.Type) fieldIndex {
	idx, _ := fieldIndexes.LoadOrCompute(typ, func() fieldIndex {
		out := fieldIndex{}
		collectFields(typ, nil, out)
		return out
	})
	return idx
}

func collectFields(typ reflect.Type, parent []int, out fieldIndex) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		path := append(append([]int(nil), parent...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, path, out)
			continue
		}
		if !field.IsExported() {
			continue
		}

		names := []string{field.Name}
		for _, tag := range []string{"json", "bun", "msgpack"} {
			if name, _, _ := strings.Cut(field.Tag.Get(tag), ","); name != "" && name != "-" {
				names = append(names, name)
			}
		}
		for _, name := range names {
			key := normalizeName(name)
			if _, exists := out[key]; !exists {
				out[key] = path
			}
		}
	}
}

// normalizeName makes "TenantID", "tenant_id" and "tenantId" resolve to the same field.
func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

func structValue(model any) (reflect.Value, bool) {
	v := reflect.ValueOf(model)
	for v.IsValid() && v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return v, true
}

// FieldValue reads a model field by Go name or tag name.
func FieldValue(model any, name string) (any, bool) {
	v, ok := structValue(model)
	if !ok {
		return nil, false
	}
	path, ok := indexFor(v.Type())[normalizeName(name)]
	if !ok {
		return nil, false
	}
	field := v.FieldByIndex(path)
	if !field.CanInterface() {
		return nil, false
	}
	return field.Interface(), true
}

// SetField assigns a model field, converting the value when the types are convertible.
// The model must be a pointer.
func SetField(model any, name string, value any) error {
	v, ok := structValue(model)
	if !ok || !v.CanAddr() {
		return fmt.Errorf("cannot set field %q on %T", name, model)
	}
	path, ok := indexFor(v.Type())[normalizeName(name)]
	if !ok {
		return fmt.Errorf("unknown field %q on %T", name, model)
	}
	field := v.FieldByIndex(path)
	if !field.CanSet() {
		return fmt.Errorf("field %q on %T is not settable", name, model)
	}

	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(field.Type()):
		field.Set(rv)
	case rv.Type().ConvertibleTo(field.Type()) && rv.Kind() != reflect.String && field.Kind() != reflect.String:
		field.Set(rv.Convert(field.Type()))
	case rv.Kind() == reflect.String && field.Kind() == reflect.String:
		field.SetString(rv.String())
	case field.Kind() == reflect.Ptr && rv.Type().AssignableTo(field.Type().Elem()):
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(rv)
		field.Set(ptr)
	default:
		return fmt.Errorf("cannot assign %T to field %q of type %s", value, name, field.Type())
	}
	return nil
}

// IDOf extracts a model identifier, preferring capability.Identifiable and
// falling back to common ID field names.
func IDOf(model any) (string, bool) {
	if m, ok := model.(capability.Identifiable); ok && !isNilPointer(model) {
		id := m.GetID()
		return id, id != ""
	}
	for _, name := range []string{"ID", "Id", "id"} {
		if value, ok := FieldValue(model, name); ok {
			id := fmt.Sprintf("%v", value)
			return id, id != "" && id != "0"
		}
	}
	return "", false
}

// SetID assigns a model identifier through capability.Identifiable or the ID field.
func SetID(model any, id string) error {
	if isNilPointer(model) {
		return fmt.Errorf("cannot set id on nil %T", model)
	}
	if m, ok := model.(capability.Identifiable); ok {
		m.SetID(id)
		return nil
	}
	return SetField(model, "ID", id)
}

// Clone returns a shallow copy of a pointer-to-struct model so callers can
// not mutate stored state through the returned value.
func Clone[T any](model T) T {
	v := reflect.ValueOf(model)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() {
		return model
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(T)
}

func isNilPointer(model any) bool {
	v := reflect.ValueOf(model)
	return !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil())
}

// Column resolves a field name to its storage column: the bun tag name when
// present, otherwise the snake_case Go field name.
func Column(model any, name string) (string, bool) {
	v, ok := structValue(model)
	if !ok {
		typ := reflect.TypeOf(model)
		for typ != nil && typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ == nil || typ.Kind() != reflect.Struct {
			return "", false
		}
		v = reflect.New(typ).Elem()
	}
	path, ok := indexFor(v.Type())[normalizeName(name)]
	if !ok {
		return "", false
	}
	field := v.Type().FieldByIndex(path)
	if col, _, _ := strings.Cut(field.Tag.Get("bun"), ","); col != "" && col != "-" {
		return col, true
	}
	return capability.SnakeCase(field.Name), true
}
