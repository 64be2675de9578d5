package record

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	goreflect "github.com/goccy/go-reflect"

	"github.com/jhump/protoschema/codec"
)

// Record is the compiled schema of a Go type: the ordered field specs read
// from its `wire` struct tags. A Record is built once per type and cached.
//
// The record of a registered oneof interface has a single oneof field and
// encodes the union directly, without a wrapping struct.
type Record struct {
	typ      reflect.Type
	fields   []*field
	byNumber map[codec.FieldNumber]*field
	oneof    *oneofSet
}

type field struct {
	spec  FieldSpec
	name  string
	index int // index of the Go struct field
	pos   int // index in Record.fields
	oneof *oneofSet
	// key and value describe map entries as pseudo-fields 1 and 2
	key, value *field
}

// Type returns the Go type the record was compiled from.
func (r *Record) Type() reflect.Type {
	return r.typ
}

// IsOneof reports whether the record is a registered oneof interface.
func (r *Record) IsOneof() bool {
	return r.oneof != nil
}

// Fields returns the field specs in declaration order.
func (r *Record) Fields() []FieldSpec {
	if r.oneof != nil {
		return []FieldSpec{{Kind: KindOneof, Variants: slices.Clone(r.oneof.numbers)}}
	}
	specs := make([]FieldSpec, len(r.fields))
	for i, f := range r.fields {
		specs[i] = f.spec
		specs[i].Variants = slices.Clone(f.spec.Variants)
	}
	return specs
}

var records sync.Map // reflect.Type -> *Record

// RecordOf returns the record for t, which must be a struct type or a
// registered oneof interface type.
func RecordOf(t reflect.Type) (*Record, error) {
	if r, ok := records.Load(t); ok {
		return r.(*Record), nil
	}
	var r *Record
	switch t.Kind() {
	case reflect.Struct:
		var err error
		if r, err = compileStruct(t); err != nil {
			return nil, err
		}
	case reflect.Interface:
		set := lookupOneof(t)
		if set == nil {
			return nil, &SchemaError{Type: t, Reason: "interface is not a registered oneof"}
		}
		r = &Record{typ: t, oneof: set}
	default:
		return nil, &SchemaError{Type: t, Reason: "records must be structs or registered oneof interfaces"}
	}
	actual, _ := records.LoadOrStore(t, r)
	return actual.(*Record), nil
}

type target struct {
	rec *Record
	ptr bool
}

// targets caches the record of top-level values by type ID, which avoids
// materializing a reflect.Type on every Marshal and Unmarshal.
var targets sync.Map // uintptr -> target

func targetOf(v any) (target, error) {
	if v == nil {
		return target{}, fmt.Errorf("record: nil value")
	}
	id := goreflect.TypeID(v)
	if tg, ok := targets.Load(id); ok {
		return tg.(target), nil
	}
	t := reflect.TypeOf(v)
	ptr := t.Kind() == reflect.Pointer
	if ptr {
		t = t.Elem()
	}
	rec, err := RecordOf(t)
	if err != nil {
		return target{}, err
	}
	tg := target{rec: rec, ptr: ptr}
	targets.Store(id, tg)
	return tg, nil
}

func compileStruct(t reflect.Type) (*Record, error) {
	r := &Record{typ: t, byNumber: map[codec.FieldNumber]*field{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("wire")
		if !ok || tag == "-" {
			continue
		}
		if !sf.IsExported() {
			return nil, &SchemaError{Type: t, Field: sf.Name, Reason: "field is not exported"}
		}
		spec, err := ParseTag(tag)
		if err != nil {
			return nil, &SchemaError{Type: t, Field: sf.Name, Reason: err.Error()}
		}
		f, reason := newField(sf.Name, i, sf.Type, spec)
		if reason != "" {
			return nil, &SchemaError{Type: t, Field: sf.Name, Reason: reason}
		}
		for _, n := range spec.Numbers() {
			if other, dup := r.byNumber[n]; dup {
				return nil, &SchemaError{Type: t, Field: sf.Name, Reason: fmt.Sprintf("field number %d is also used by %s", n, other.name)}
			}
			r.byNumber[n] = f
		}
		f.pos = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r, nil
}

// newField validates that t can hold values described by spec. It returns
// a non-empty reason when it cannot.
func newField(name string, index int, t reflect.Type, spec FieldSpec) (*field, string) {
	f := &field{spec: spec, name: name, index: index}
	switch spec.Kind {
	case KindOneof:
		set := lookupOneof(t)
		if set == nil {
			return nil, fmt.Sprintf("Go type %v is not a registered oneof", t)
		}
		if !sameNumbers(set.numbers, spec.Variants) {
			return nil, fmt.Sprintf("oneof %v registers fields %v, tag declares %v", t, set.numbers, spec.Variants)
		}
		f.oneof = set
	case KindMap:
		if t.Kind() != reflect.Map {
			return nil, fmt.Sprintf("Go type %v is not a map", t)
		}
		if reason := checkScalar(t.Key(), spec.MapKey); reason != "" {
			return nil, reason
		}
		f.key = &field{spec: FieldSpec{Number: 1, Cardinality: Required, Kind: KindPrimitive, Subtype: spec.MapKey}}
		valueSpec := FieldSpec{Number: 2, Cardinality: Required, Kind: KindMessage, Wrapper: spec.Wrapper}
		if spec.MapValue != 0 {
			valueSpec.Kind = KindPrimitive
			valueSpec.Subtype = spec.MapValue
		}
		if reason := checkElem(t.Elem(), valueSpec); reason != "" {
			return nil, reason
		}
		f.value = &field{spec: valueSpec}
	default:
		elem := t
		if spec.Cardinality == Repeated {
			if t.Kind() != reflect.Slice {
				return nil, fmt.Sprintf("Go type %v of a repeated field is not a slice", t)
			}
			elem = t.Elem()
		}
		if reason := checkElem(elem, spec); reason != "" {
			return nil, reason
		}
	}
	return f, ""
}

func checkElem(t reflect.Type, spec FieldSpec) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if spec.Kind == KindPrimitive {
		return checkScalar(t, spec.Subtype)
	}
	if spec.Wrapper != 0 {
		return checkScalar(t, spec.Wrapper)
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Interface:
		// An interface must be a registered oneof by the time a value is
		// encoded or decoded, which RecordOf checks. Variants may refer to
		// their own union or to one registered later in the same init.
		return ""
	}
	return fmt.Sprintf("Go type %v cannot hold messages", t)
}

func checkScalar(t reflect.Type, st Subtype) string {
	var want reflect.Kind
	switch st {
	case Int32, Sint32, Sfixed32, Enum:
		want = reflect.Int32
	case Int64, Sint64, Sfixed64:
		want = reflect.Int64
	case Uint32, Fixed32:
		want = reflect.Uint32
	case Uint64, Fixed64:
		want = reflect.Uint64
	case Float:
		want = reflect.Float32
	case Double:
		want = reflect.Float64
	case Bool:
		want = reflect.Bool
	case String:
		want = reflect.String
	case Bytes:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return ""
		}
		return fmt.Sprintf("Go type %v cannot hold bytes values", t)
	}
	if t.Kind() != want {
		return fmt.Sprintf("Go type %v cannot hold %v values", t, st)
	}
	return ""
}

func sameNumbers(a, b []codec.FieldNumber) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
