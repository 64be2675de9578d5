package record

import (
	"cmp"
	"math"
	"reflect"
	"slices"
	"unicode/utf8"

	"github.com/jhump/protoschema/codec"
)

func sizeScalar(st Subtype, v reflect.Value) int {
	switch st {
	case Int32, Int64, Enum:
		return codec.SizeVarint(uint64(v.Int()))
	case Uint32, Uint64:
		return codec.SizeVarint(v.Uint())
	case Sint32:
		return codec.SizeVarint(codec.EncodeZigZag32(int32(v.Int())))
	case Sint64:
		return codec.SizeVarint(codec.EncodeZigZag64(v.Int()))
	case Fixed32, Sfixed32, Float:
		return 4
	case Fixed64, Sfixed64, Double:
		return 8
	case Bool:
		return 1
	case String, Bytes:
		return codec.SizeBytes(v.Len())
	}
	return 0
}

func encodeScalar(buf *codec.Buffer, st Subtype, v reflect.Value) {
	switch st {
	case Int32, Int64, Enum:
		// sign-extended: negative 32-bit values take ten bytes
		buf.EncodeVarint(uint64(v.Int()))
	case Uint32, Uint64:
		buf.EncodeVarint(v.Uint())
	case Sint32:
		buf.EncodeVarint(codec.EncodeZigZag32(int32(v.Int())))
	case Sint64:
		buf.EncodeVarint(codec.EncodeZigZag64(v.Int()))
	case Fixed32:
		buf.EncodeFixed32(uint32(v.Uint()))
	case Sfixed32:
		buf.EncodeFixed32(uint32(int32(v.Int())))
	case Float:
		buf.EncodeFixed32(math.Float32bits(float32(v.Float())))
	case Fixed64:
		buf.EncodeFixed64(v.Uint())
	case Sfixed64:
		buf.EncodeFixed64(uint64(v.Int()))
	case Double:
		buf.EncodeFixed64(math.Float64bits(v.Float()))
	case Bool:
		if v.Bool() {
			buf.EncodeVarint(1)
		} else {
			buf.EncodeVarint(0)
		}
	case String:
		buf.EncodeString(v.String())
	case Bytes:
		buf.EncodeRawBytes(v.Bytes())
	}
}

// decodeScalar stores val into dst. The caller has checked the wire type.
func decodeScalar(st Subtype, val codec.Value, dst reflect.Value) error {
	x := val.Scalar
	switch st {
	case Int32, Enum:
		dst.SetInt(int64(int32(x)))
	case Int64:
		dst.SetInt(int64(x))
	case Uint32:
		dst.SetUint(uint64(uint32(x)))
	case Uint64, Fixed64:
		dst.SetUint(x)
	case Sint32:
		dst.SetInt(int64(codec.DecodeZigZag32(x)))
	case Sint64:
		dst.SetInt(codec.DecodeZigZag64(x))
	case Fixed32:
		dst.SetUint(uint64(uint32(x)))
	case Sfixed32:
		dst.SetInt(int64(int32(uint32(x))))
	case Sfixed64:
		dst.SetInt(int64(x))
	case Float:
		dst.SetFloat(float64(math.Float32frombits(uint32(x))))
	case Double:
		dst.SetFloat(math.Float64frombits(x))
	case Bool:
		dst.SetBool(x != 0)
	case String:
		if !utf8.Valid(val.Bytes) {
			return codec.ErrInvalidUTF8
		}
		dst.SetString(string(val.Bytes))
	case Bytes:
		dst.SetBytes(append([]byte{}, val.Bytes...))
	}
	return nil
}

func wrapperSize(st Subtype, v reflect.Value) int {
	return codec.SizeTag(1) + sizeScalar(st, v)
}

func decodeWrapper(st Subtype, payload []byte, dst reflect.Value) error {
	dst.Set(reflect.Zero(dst.Type()))
	sub := codec.NewBuffer(payload)
	for !sub.EOF() {
		num, wt, err := sub.DecodeTag()
		if err != nil {
			return err
		}
		val, err := sub.DecodeValue(wt)
		if err != nil {
			return err
		}
		if num != 1 {
			return &UnexpectedFieldNumberError{Number: num}
		}
		if wt != st.WireType() {
			return &codec.UnexpectedWireTypeError{Expected: st.WireType(), Actual: wt}
		}
		if err := decodeScalar(st, val, dst); err != nil {
			return err
		}
	}
	if st == Bytes && dst.IsNil() {
		dst.SetBytes([]byte{})
	}
	return nil
}

// sortedKeys returns the keys of m in ascending order so that map fields
// always encode the same way.
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	switch m.Type().Key().Kind() {
	case reflect.Int32, reflect.Int64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) })
	case reflect.Uint32, reflect.Uint64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) })
	case reflect.String:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
	case reflect.Bool:
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case b.Bool():
				return -1
			default:
				return 1
			}
		})
	}
	return keys
}
