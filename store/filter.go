package store

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Op is a predicate comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Predicate compares a single model field against a value.
type Predicate struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Eq is shorthand for an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Filter is a conjunction of predicates with an optional ordering.
// OrderBy names a field; a leading "-" sorts descending.
type Filter struct {
	Predicates []Predicate `json:"predicates,omitempty"`
	OrderBy    string      `json:"order_by,omitempty"`
}

// Where builds a filter from predicates.
func Where(predicates ...Predicate) Filter {
	return Filter{}.And(predicates...)
}

// And returns a new filter with the predicates appended. The receiver's
// backing array is never shared with the result.
func (f Filter) And(predicates ...Predicate) Filter {
	out := make([]Predicate, 0, len(f.Predicates)+len(predicates))
	out = append(out, f.Predicates...)
	out = append(out, predicates...)
	return Filter{Predicates: out, OrderBy: f.OrderBy}
}

// Has reports whether any predicate targets the field.
func (f Filter) Has(field string) bool {
	for _, p := range f.Predicates {
		if normalizeName(p.Field) == normalizeName(field) {
			return true
		}
	}
	return false
}

// Match evaluates every predicate against the model.
func (f Filter) Match(model any) (bool, error) {
	for _, p := range f.Predicates {
		ok, err := p.Match(model)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Match evaluates the predicate against the model's field value.
func (p Predicate) Match(model any) (bool, error) {
	field, ok := FieldValue(model, p.Field)
	if !ok {
		return false, fmt.Errorf("unknown field %q on %T", p.Field, model)
	}

	switch p.Op {
	case OpEq, "":
		return equalValues(field, p.Value), nil
	case OpNe:
		return !equalValues(field, p.Value), nil
	case OpIn:
		rv := reflect.ValueOf(p.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false, fmt.Errorf("operator in expects a slice for %q", p.Field)
		}
		for i := 0; i < rv.Len(); i++ {
			if equalValues(field, rv.Index(i).Interface()) {
				return true, nil
			}
		}
		return false, nil
	case OpGt, OpGte, OpLt, OpLte:
		cmp, ok := compareValues(field, p.Value)
		if !ok {
			return false, fmt.Errorf("field %q is not comparable with %T", p.Field, p.Value)
		}
		switch p.Op {
		case OpGt:
			return cmp > 0, nil
		case OpGte:
			return cmp >= 0, nil
		case OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	default:
		return false, fmt.Errorf("unsupported operator %q", p.Op)
	}
}

// SortModels orders models in place by the filter's OrderBy field.
func SortModels[T any](models []T, orderBy string) {
	if orderBy == "" {
		return
	}
	desc := strings.HasPrefix(orderBy, "-")
	field := strings.TrimPrefix(orderBy, "-")
	sort.SliceStable(models, func(i, j int) bool {
		a, _ := FieldValue(models[i], field)
		b, _ := FieldValue(models[j], field)
		cmp, _ := compareValues(a, b)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func equalValues(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two scalar values, normalising numeric kinds.
func compareValues(a, b any) (int, bool) {
	a, b = deref(a), deref(b)

	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() {
		if !av.IsValid() && !bv.IsValid() {
			return 0, true
		}
		return 0, false
	}

	switch {
	case isNumber(av.Kind()) && isNumber(bv.Kind()):
		x, y := toFloat(av), toFloat(bv)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case av.Kind() == reflect.String && bv.Kind() == reflect.String:
		return strings.Compare(av.String(), bv.String()), true
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		if av.Bool() == bv.Bool() {
			return 0, true
		}
		if !av.Bool() {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
