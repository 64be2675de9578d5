package record

import (
	"reflect"

	"github.com/jhump/protoschema/codec"
)

// The size functions mirror the encode functions exactly: Marshal relies on
// them to allocate once and verifies the result.

func (r *Record) size(v reflect.Value) (int, error) {
	if r.oneof != nil {
		return r.oneof.size(v)
	}
	total := 0
	for _, f := range r.fields {
		n, err := f.size(v.Field(f.index))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (r *Record) encode(buf *codec.Buffer, v reflect.Value) error {
	if r.oneof != nil {
		return r.oneof.encode(buf, v)
	}
	for _, f := range r.fields {
		if err := f.encode(buf, v.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

// present returns whether a singular field holds a value. A nil required
// field is an error.
func (f *field) present(fv reflect.Value) (bool, error) {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !fv.IsNil() {
			return true, nil
		}
		if f.spec.Cardinality == Required {
			return false, &MissingFieldError{Number: f.spec.Number}
		}
		return false, nil
	case reflect.Slice:
		// optional bytes
		return !fv.IsNil() || f.spec.Cardinality == Required, nil
	}
	return true, nil
}

func (f *field) size(fv reflect.Value) (int, error) {
	switch f.spec.Kind {
	case KindOneof:
		return f.oneof.size(fv)
	case KindMap:
		return f.sizeMap(fv)
	}
	if f.spec.Cardinality == Repeated {
		n := fv.Len()
		if n == 0 {
			return 0, nil
		}
		if f.spec.Packed() {
			return codec.SizeTag(f.spec.Number) + codec.SizeBytes(f.packedSize(fv)), nil
		}
		total := n * codec.SizeTag(f.spec.Number)
		for i := 0; i < n; i++ {
			s, err := f.sizeValue(fv.Index(i))
			if err != nil {
				return 0, err
			}
			total += s
		}
		return total, nil
	}
	ok, err := f.present(fv)
	if !ok || err != nil {
		return 0, err
	}
	s, err := f.sizeValue(fv)
	if err != nil {
		return 0, err
	}
	return codec.SizeTag(f.spec.Number) + s, nil
}

func (f *field) encode(buf *codec.Buffer, fv reflect.Value) error {
	switch f.spec.Kind {
	case KindOneof:
		return f.oneof.encode(buf, fv)
	case KindMap:
		return f.encodeMap(buf, fv)
	}
	if f.spec.Cardinality == Repeated {
		n := fv.Len()
		if n == 0 {
			return nil
		}
		if f.spec.Packed() {
			buf.EncodeTag(f.spec.Number, codec.LengthDelimited)
			buf.EncodeVarint(uint64(f.packedSize(fv)))
			for i := 0; i < n; i++ {
				encodeScalar(buf, f.spec.Subtype, fv.Index(i))
			}
			return nil
		}
		for i := 0; i < n; i++ {
			buf.EncodeTag(f.spec.Number, f.spec.WireType())
			if err := f.encodeValue(buf, fv.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	ok, err := f.present(fv)
	if !ok || err != nil {
		return err
	}
	buf.EncodeTag(f.spec.Number, f.spec.WireType())
	return f.encodeValue(buf, fv)
}

func (f *field) packedSize(fv reflect.Value) int {
	n := 0
	for i := 0; i < fv.Len(); i++ {
		n += sizeScalar(f.spec.Subtype, fv.Index(i))
	}
	return n
}

// deref follows a pointer to the value it holds. A nil pointer stands for
// the zero value; only repeated elements and map values reach here nil.
func deref(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Pointer {
		return v
	}
	if v.IsNil() {
		return reflect.Zero(v.Type().Elem())
	}
	return v.Elem()
}

// sizeValue returns the size of one value without its tag.
func (f *field) sizeValue(v reflect.Value) (int, error) {
	v = deref(v)
	switch {
	case f.spec.Kind == KindPrimitive:
		return sizeScalar(f.spec.Subtype, v), nil
	case f.spec.Wrapper != 0:
		return codec.SizeBytes(wrapperSize(f.spec.Wrapper, v)), nil
	}
	rec, err := RecordOf(v.Type())
	if err != nil {
		return 0, err
	}
	n, err := rec.size(v)
	if err != nil {
		return 0, err
	}
	return codec.SizeBytes(n), nil
}

// encodeValue writes one value without its tag.
func (f *field) encodeValue(buf *codec.Buffer, v reflect.Value) error {
	v = deref(v)
	switch {
	case f.spec.Kind == KindPrimitive:
		encodeScalar(buf, f.spec.Subtype, v)
		return nil
	case f.spec.Wrapper != 0:
		buf.EncodeVarint(uint64(wrapperSize(f.spec.Wrapper, v)))
		buf.EncodeTag(1, f.spec.Wrapper.WireType())
		encodeScalar(buf, f.spec.Wrapper, v)
		return nil
	}
	rec, err := RecordOf(v.Type())
	if err != nil {
		return err
	}
	n, err := rec.size(v)
	if err != nil {
		return err
	}
	buf.EncodeVarint(uint64(n))
	return rec.encode(buf, v)
}

func (f *field) sizeEntry(k, v reflect.Value) (int, error) {
	ks, err := f.key.sizeValue(k)
	if err != nil {
		return 0, err
	}
	vs, err := f.value.sizeValue(v)
	if err != nil {
		return 0, err
	}
	return codec.SizeTag(1) + ks + codec.SizeTag(2) + vs, nil
}

func (f *field) sizeMap(fv reflect.Value) (int, error) {
	total := 0
	iter := fv.MapRange()
	for iter.Next() {
		n, err := f.sizeEntry(iter.Key(), iter.Value())
		if err != nil {
			return 0, err
		}
		total += codec.SizeTag(f.spec.Number) + codec.SizeBytes(n)
	}
	return total, nil
}

func (f *field) encodeMap(buf *codec.Buffer, fv reflect.Value) error {
	if fv.Len() == 0 {
		return nil
	}
	for _, k := range sortedKeys(fv) {
		v := fv.MapIndex(k)
		n, err := f.sizeEntry(k, v)
		if err != nil {
			return err
		}
		buf.EncodeTag(f.spec.Number, codec.LengthDelimited)
		buf.EncodeVarint(uint64(n))
		buf.EncodeTag(1, f.key.spec.WireType())
		if err := f.key.encodeValue(buf, k); err != nil {
			return err
		}
		buf.EncodeTag(2, f.value.spec.WireType())
		if err := f.value.encodeValue(buf, v); err != nil {
			return err
		}
	}
	return nil
}
