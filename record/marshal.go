package record

import (
	"fmt"
	"reflect"

	"github.com/jhump/protoschema/codec"
)

// resolve returns the record of v and the value to encode. v is a struct,
// a pointer to a struct, or a pointer to a registered oneof interface.
func resolve(v any) (*Record, reflect.Value, error) {
	tg, err := targetOf(v)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	rv := reflect.ValueOf(v)
	if tg.ptr {
		if rv.IsNil() {
			return nil, reflect.Value{}, fmt.Errorf("record: nil %T", v)
		}
		rv = rv.Elem()
	}
	return tg.rec, rv, nil
}

// Size returns the exact number of bytes Marshal produces for v.
func Size(v any) (int, error) {
	rec, rv, err := resolve(v)
	if err != nil {
		return 0, err
	}
	return rec.size(rv)
}

// Marshal returns the wire encoding of v.
func Marshal(v any) ([]byte, error) {
	return MarshalAppend(nil, v)
}

// MarshalAppend appends the wire encoding of v to b. The output is sized
// up front, so b is grown at most once.
func MarshalAppend(b []byte, v any) ([]byte, error) {
	rec, rv, err := resolve(v)
	if err != nil {
		return nil, err
	}
	n, err := rec.size(rv)
	if err != nil {
		return nil, err
	}
	start := len(b)
	if cap(b)-start < n {
		nb := make([]byte, start, start+n)
		copy(nb, b)
		b = nb
	}
	buf := codec.NewBuffer(b)
	if err := rec.encode(buf, rv); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if len(out)-start != n {
		return nil, fmt.Errorf("record: %v encoded to %d bytes but its size is %d", rec.typ, len(out)-start, n)
	}
	return out, nil
}

// Unmarshal decodes b into v, which must be a non-nil pointer to a struct
// or to a registered oneof interface. v is reset first.
func Unmarshal(b []byte, v any) error {
	return unmarshal(codec.NewBuffer(b), v)
}

func unmarshal(buf *codec.Buffer, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("record: Unmarshal requires a non-nil pointer, got %T", v)
	}
	tg, err := targetOf(v)
	if err != nil {
		return err
	}
	dst := rv.Elem()
	dst.Set(reflect.Zero(dst.Type()))
	return tg.rec.decode(buf, dst)
}

// MarshalDelimited returns the encoding of v prefixed with its length as a
// varint, for writing a stream of records.
func MarshalDelimited(v any) ([]byte, error) {
	n, err := Size(v)
	if err != nil {
		return nil, err
	}
	var prefix codec.Buffer
	prefix.EncodeVarint(uint64(n))
	return MarshalAppend(append(make([]byte, 0, prefix.Len()+n), prefix.Bytes()...), v)
}

// UnmarshalDelimited reads one length-prefixed record from buf into v and
// advances buf past it.
func UnmarshalDelimited(buf *codec.Buffer, v any) error {
	b, err := buf.DecodeRawBytes(false)
	if err != nil {
		return err
	}
	return unmarshal(codec.NewBuffer(b), v)
}
