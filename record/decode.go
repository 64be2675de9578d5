package record

import (
	"reflect"

	"github.com/jhump/protoschema/codec"
)

// decode reads every tag/value pair in buf into v, which must be settable
// and already reset. Unknown field numbers are fatal.
func (r *Record) decode(buf *codec.Buffer, v reflect.Value) error {
	if r.oneof != nil {
		return r.oneof.decodeAll(buf, v)
	}
	seen := make([]bool, len(r.fields))
	for !buf.EOF() {
		num, wt, err := buf.DecodeTag()
		if err != nil {
			return err
		}
		val, err := buf.DecodeValue(wt)
		if err != nil {
			return err
		}
		f := r.byNumber[num]
		if f == nil {
			return &UnexpectedFieldNumberError{Number: num}
		}
		if err := f.decode(num, val, v.Field(f.index)); err != nil {
			return err
		}
		seen[f.pos] = true
	}
	for _, f := range r.fields {
		if seen[f.pos] {
			continue
		}
		switch {
		case f.spec.Kind == KindOneof:
			return &MissingOneofError{Numbers: f.spec.Variants}
		case f.spec.Cardinality == Required:
			return &MissingFieldError{Number: f.spec.Number}
		}
	}
	return nil
}

func (f *field) decode(num codec.FieldNumber, val codec.Value, fv reflect.Value) error {
	switch f.spec.Kind {
	case KindOneof:
		return f.oneof.decodeInto(num, val, fv)
	case KindMap:
		return f.decodeEntry(val, fv)
	}
	if f.spec.Cardinality != Repeated {
		// last occurrence wins
		return f.decodeValue(val, fv)
	}
	natural := f.spec.WireType()
	if val.Type != codec.LengthDelimited || natural == codec.LengthDelimited {
		return f.appendValue(val, fv)
	}
	// packed run, accepted whether or not the field is declared packed
	sub := codec.NewBuffer(val.Bytes)
	for !sub.EOF() {
		el, err := sub.DecodeValue(natural)
		if err != nil {
			return err
		}
		if err := f.appendValue(el, fv); err != nil {
			return err
		}
	}
	return nil
}

func (f *field) appendValue(val codec.Value, fv reflect.Value) error {
	el := reflect.New(fv.Type().Elem()).Elem()
	if err := f.decodeValue(val, el); err != nil {
		return err
	}
	fv.Set(reflect.Append(fv, el))
	return nil
}

// decodeValue replaces dst with one decoded value. Pointers are allocated
// fresh, so a repeated occurrence never merges into an earlier one.
func (f *field) decodeValue(val codec.Value, dst reflect.Value) error {
	if want := f.spec.WireType(); val.Type != want {
		return &codec.UnexpectedWireTypeError{Expected: want, Actual: val.Type}
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := f.decodeValue(val, p.Elem()); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	switch {
	case f.spec.Kind == KindPrimitive:
		return decodeScalar(f.spec.Subtype, val, dst)
	case f.spec.Wrapper != 0:
		return decodeWrapper(f.spec.Wrapper, val.Bytes, dst)
	}
	rec, err := RecordOf(dst.Type())
	if err != nil {
		return err
	}
	dst.Set(reflect.Zero(dst.Type()))
	if err := rec.decode(codec.NewBuffer(val.Bytes), dst); err != nil {
		return &codec.ConversionError{Type: dst.Type().String(), Err: err}
	}
	return nil
}

func (f *field) decodeEntry(val codec.Value, fv reflect.Value) error {
	if val.Type != codec.LengthDelimited {
		return &codec.UnexpectedWireTypeError{Expected: codec.LengthDelimited, Actual: val.Type}
	}
	if fv.IsNil() {
		fv.Set(reflect.MakeMap(fv.Type()))
	}
	key := reflect.New(fv.Type().Key()).Elem()
	value := reflect.New(fv.Type().Elem()).Elem()
	sub := codec.NewBuffer(val.Bytes)
	for !sub.EOF() {
		num, wt, err := sub.DecodeTag()
		if err != nil {
			return err
		}
		raw, err := sub.DecodeValue(wt)
		if err != nil {
			return err
		}
		switch num {
		case 1:
			err = f.key.decodeValue(raw, key)
		case 2:
			err = f.value.decodeValue(raw, value)
		default:
			err = &UnexpectedFieldNumberError{Number: num}
		}
		if err != nil {
			return err
		}
	}
	if value.Kind() == reflect.Pointer && value.IsNil() {
		value.Set(reflect.New(value.Type().Elem()))
	}
	fv.SetMapIndex(key, value)
	return nil
}
