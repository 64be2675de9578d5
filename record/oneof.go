package record

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/jhump/protoschema/codec"
)

type oneofSet struct {
	iface    reflect.Type
	numbers  []codec.FieldNumber
	byNumber map[codec.FieldNumber]*variant
	byType   map[reflect.Type]*variant
}

type variant struct {
	typ   reflect.Type // pointer to the variant struct
	field *field
}

var oneofs sync.Map // reflect.Type -> *oneofSet

// RegisterOneof registers the union interface I and its alternatives. Each
// variant must be a pointer to a struct with exactly one required field
// tagged `wire`; that field's number is the alternative's number. A variant
// may hold I itself or a union registered later.
//
// Generated code calls RegisterOneof from init. It panics if the variants
// are malformed or if I is registered twice.
func RegisterOneof[I any](variants ...I) {
	iface := reflect.TypeOf((*I)(nil)).Elem()
	if iface.Kind() != reflect.Interface {
		panic(fmt.Sprintf("record: RegisterOneof: %v is not an interface", iface))
	}
	set := &oneofSet{
		iface:    iface,
		byNumber: map[codec.FieldNumber]*variant{},
		byType:   map[reflect.Type]*variant{},
	}
	for _, v := range variants {
		vt := reflect.TypeOf(v)
		if vt == nil || vt.Kind() != reflect.Pointer || vt.Elem().Kind() != reflect.Struct {
			panic(fmt.Sprintf("record: RegisterOneof(%v): variant %v is not a pointer to a struct", iface, vt))
		}
		rec, err := compileStruct(vt.Elem())
		if err != nil {
			panic(fmt.Sprintf("record: RegisterOneof(%v): %v", iface, err))
		}
		if len(rec.fields) != 1 {
			panic(fmt.Sprintf("record: RegisterOneof(%v): variant %v must have exactly one field", iface, vt))
		}
		f := rec.fields[0]
		if f.spec.Cardinality != Required || (f.spec.Kind != KindPrimitive && f.spec.Kind != KindMessage) {
			panic(fmt.Sprintf("record: RegisterOneof(%v): field of variant %v must be a required primitive or message", iface, vt))
		}
		if _, dup := set.byNumber[f.spec.Number]; dup {
			panic(fmt.Sprintf("record: RegisterOneof(%v): field number %d used by more than one variant", iface, f.spec.Number))
		}
		vr := &variant{typ: vt, field: f}
		set.byNumber[f.spec.Number] = vr
		set.byType[vt] = vr
		set.numbers = append(set.numbers, f.spec.Number)
	}
	if len(set.numbers) == 0 {
		panic(fmt.Sprintf("record: RegisterOneof(%v): no variants", iface))
	}
	if _, loaded := oneofs.LoadOrStore(iface, set); loaded {
		panic(fmt.Sprintf("record: RegisterOneof(%v): already registered", iface))
	}
}

func lookupOneof(t reflect.Type) *oneofSet {
	if t.Kind() != reflect.Interface {
		return nil
	}
	set, ok := oneofs.Load(t)
	if !ok {
		return nil
	}
	return set.(*oneofSet)
}

// active returns the variant held by v, an interface value, and the
// value of the variant's field.
func (s *oneofSet) active(v reflect.Value) (*variant, reflect.Value, error) {
	if v.IsNil() {
		return nil, reflect.Value{}, &MissingOneofError{Numbers: s.numbers}
	}
	c := v.Elem()
	vr := s.byType[c.Type()]
	if vr == nil {
		return nil, reflect.Value{}, &SchemaError{Type: s.iface, Reason: fmt.Sprintf("%v is not a registered variant", c.Type())}
	}
	if c.IsNil() {
		return nil, reflect.Value{}, &MissingOneofError{Numbers: s.numbers}
	}
	return vr, c.Elem().Field(vr.field.index), nil
}

func (s *oneofSet) size(v reflect.Value) (int, error) {
	vr, fv, err := s.active(v)
	if err != nil {
		return 0, err
	}
	return vr.field.size(fv)
}

func (s *oneofSet) encode(buf *codec.Buffer, v reflect.Value) error {
	vr, fv, err := s.active(v)
	if err != nil {
		return err
	}
	return vr.field.encode(buf, fv)
}

// decodeInto replaces the union held by dst with the alternative numbered
// num.
func (s *oneofSet) decodeInto(num codec.FieldNumber, val codec.Value, dst reflect.Value) error {
	vr := s.byNumber[num]
	if vr == nil {
		return &UnexpectedFieldNumberError{Number: num}
	}
	p := reflect.New(vr.typ.Elem())
	if err := vr.field.decodeValue(val, p.Elem().Field(vr.field.index)); err != nil {
		return err
	}
	dst.Set(p)
	return nil
}

// decodeAll decodes a message whose only content is the union.
func (s *oneofSet) decodeAll(buf *codec.Buffer, dst reflect.Value) error {
	seen := false
	for !buf.EOF() {
		num, wt, err := buf.DecodeTag()
		if err != nil {
			return err
		}
		val, err := buf.DecodeValue(wt)
		if err != nil {
			return err
		}
		if err := s.decodeInto(num, val, dst); err != nil {
			return err
		}
		seen = true
	}
	if !seen {
		return &MissingOneofError{Numbers: s.numbers}
	}
	return nil
}
