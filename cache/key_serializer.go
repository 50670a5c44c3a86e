package cache

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeySerializer renders a request distinguisher into a stable string.
type KeySerializer interface {
	SerializeKey(kind string, args ...any) string
}

// defaultKeySerializer walks values with reflection and produces the same
// text for equal inputs across processes. Scalars carry their kind and strings
// are quoted, so 1 and "1" never share a key. Functions and channels render
// by address and are stable within one process only.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (s defaultKeySerializer) SerializeKey(kind string, args ...any) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, arg := range args {
		b.WriteString(KeySeparator)
		s.write(&b, reflect.ValueOf(arg))
	}
	return b.String()
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

func (s defaultKeySerializer) write(b *strings.Builder, v reflect.Value) {
	if !v.IsValid() {
		b.WriteString("nil")
		return
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			b.WriteString("nil")
			return
		}
		s.write(b, v.Elem())
		return
	case reflect.Func, reflect.Chan:
		fmt.Fprintf(b, "%s:%#x", kindLabel(v.Kind()), v.Pointer())
		return
	}

	if v.Type().Implements(textMarshalerType) && v.CanInterface() {
		if text, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			b.WriteString("text:")
			b.Write(text)
			return
		}
	}

	switch v.Kind() {
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Bool:
		b.WriteString("bool:")
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString("int:")
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString("uint:")
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32:
		b.WriteString("float:")
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 32))
	case reflect.Float64:
		b.WriteString("float:")
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		fmt.Fprintf(b, "complex:%v", v.Complex())
	case reflect.Slice:
		if v.IsNil() {
			b.WriteString("slice:nil")
			return
		}
		s.writeSequence(b, "slice", v)
	case reflect.Array:
		s.writeSequence(b, "array", v)
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("map:nil")
			return
		}
		s.writeMap(b, v)
	case reflect.Struct:
		s.writeStruct(b, v)
	default:
		fmt.Fprintf(b, "%s:%v", v.Type(), v)
	}
}

func (s defaultKeySerializer) writeSequence(b *strings.Builder, label string, v reflect.Value) {
	fmt.Fprintf(b, "%s[%d]:{", label, v.Len())
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		s.write(b, v.Index(i))
	}
	b.WriteByte('}')
}

// writeMap renders entries ordered by their serialized key.
func (s defaultKeySerializer) writeMap(b *strings.Builder, v reflect.Value) {
	pairs := make([][2]string, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var k, val strings.Builder
		s.write(&k, iter.Key())
		s.write(&val, iter.Value())
		pairs = append(pairs, [2]string{k.String(), val.String()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	fmt.Fprintf(b, "map[%d]:{", len(pairs))
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(p[1])
	}
	b.WriteByte('}')
}

func (s defaultKeySerializer) writeStruct(b *strings.Builder, v reflect.Value) {
	typ := v.Type()
	b.WriteString("struct:{")
	first := true
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(field.Name)
		b.WriteByte(':')
		s.write(b, v.Field(i))
	}
	b.WriteByte('}')
}

func kindLabel(k reflect.Kind) string {
	if k == reflect.Func {
		return "func"
	}
	return "chan"
}
