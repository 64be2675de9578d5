package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jhump/protoschema/codec"
)

// Cardinality says how many values a field carries.
type Cardinality uint8

const (
	// Required fields are always encoded and must be present when decoding.
	Required Cardinality = iota + 1
	// Optional fields are encoded only when present.
	Optional
	// Repeated fields carry zero or more values. Maps are repeated.
	Repeated
)

func (c Cardinality) String() string {
	switch c {
	case Required:
		return "req"
	case Optional:
		return "opt"
	case Repeated:
		return "rep"
	default:
		return fmt.Sprintf("Cardinality(%d)", uint8(c))
	}
}

// Kind is the shape of a field's value.
type Kind uint8

const (
	KindPrimitive Kind = iota + 1
	KindMessage
	KindOneof
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindMessage:
		return "message"
	case KindOneof:
		return "oneof"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Subtype is the scalar family of a primitive value. Each subtype has a
// fixed wire type.
type Subtype uint8

const (
	Int32 Subtype = iota + 1
	Int64
	Uint32
	Uint64
	Sint32
	Sint64
	Fixed32
	Fixed64
	Sfixed32
	Sfixed64
	Float
	Double
	Bool
	String
	Bytes
	// Enum values are encoded exactly like Int32.
	Enum
)

var subtypeNames = [...]string{
	Int32:    "int32",
	Int64:    "int64",
	Uint32:   "uint32",
	Uint64:   "uint64",
	Sint32:   "sint32",
	Sint64:   "sint64",
	Fixed32:  "fixed32",
	Fixed64:  "fixed64",
	Sfixed32: "sfixed32",
	Sfixed64: "sfixed64",
	Float:    "float",
	Double:   "double",
	Bool:     "bool",
	String:   "string",
	Bytes:    "bytes",
	Enum:     "enum",
}

func (s Subtype) String() string {
	if s > 0 && int(s) < len(subtypeNames) {
		return subtypeNames[s]
	}
	return fmt.Sprintf("Subtype(%d)", uint8(s))
}

// ParseSubtype returns the subtype with the given name.
func ParseSubtype(name string) (Subtype, bool) {
	for i, n := range subtypeNames {
		if i > 0 && n == name {
			return Subtype(i), true
		}
	}
	return 0, false
}

// WireType returns the natural wire type of values of this subtype.
func (s Subtype) WireType() codec.WireType {
	switch s {
	case Fixed32, Sfixed32, Float:
		return codec.Fixed32
	case Fixed64, Sfixed64, Double:
		return codec.Fixed64
	case String, Bytes:
		return codec.LengthDelimited
	default:
		return codec.VarInt
	}
}

// Packable reports whether repeated values of this subtype are packed by
// default.
func (s Subtype) Packable() bool {
	return s.WireType() != codec.LengthDelimited
}

// FieldSpec describes one field of a record: its number, cardinality, and
// kind. For oneof fields, Number is zero and Variants lists the numbers of
// the alternatives.
type FieldSpec struct {
	Number      codec.FieldNumber
	Cardinality Cardinality
	Kind        Kind
	// Subtype of a primitive field, or of the elements of a repeated
	// primitive field.
	Subtype Subtype
	// Wrapper, when non-zero, marks a message (or message map value) whose
	// payload is a single value of this subtype at field number 1. The Go
	// value is the bare scalar.
	Wrapper Subtype
	// Unpacked disables packing for a repeated scalar field.
	Unpacked bool
	// MapKey is the subtype of map keys. MapValue is the subtype of map
	// values, or zero when values are messages.
	MapKey, MapValue Subtype
	Variants         []codec.FieldNumber
}

// WireType returns the wire type of one encoded value of the field. For a
// packed repeated field this is the type of each element, not of the run.
func (f *FieldSpec) WireType() codec.WireType {
	if f.Kind == KindPrimitive {
		return f.Subtype.WireType()
	}
	return codec.LengthDelimited
}

// Packed reports whether the field is encoded as a single packed run.
func (f *FieldSpec) Packed() bool {
	return f.Kind == KindPrimitive && f.Cardinality == Repeated && !f.Unpacked && f.Subtype.Packable()
}

// Numbers returns every field number the field may appear under.
func (f *FieldSpec) Numbers() []codec.FieldNumber {
	if f.Kind == KindOneof {
		return f.Variants
	}
	return []codec.FieldNumber{f.Number}
}

// String formats the field spec in the struct tag syntax accepted by
// ParseTag.
func (f *FieldSpec) String() string {
	var sb strings.Builder
	if f.Kind == KindOneof {
		for i, n := range f.Variants {
			if i > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(strconv.Itoa(int(n)))
		}
		sb.WriteString(",oneof")
		return sb.String()
	}
	sb.WriteString(strconv.Itoa(int(f.Number)))
	sb.WriteByte(',')
	sb.WriteString(f.Cardinality.String())
	sb.WriteByte(',')
	switch f.Kind {
	case KindPrimitive:
		sb.WriteString(f.Subtype.String())
	case KindMessage:
		sb.WriteString("message")
	case KindMap:
		sb.WriteString("map[")
		sb.WriteString(f.MapKey.String())
		sb.WriteByte(']')
		if f.MapValue == 0 {
			sb.WriteString("message")
		} else {
			sb.WriteString(f.MapValue.String())
		}
	}
	if f.Unpacked {
		sb.WriteString(",unpacked")
	}
	if f.Wrapper != 0 {
		sb.WriteString(",wrapper=")
		sb.WriteString(f.Wrapper.String())
	}
	return sb.String()
}

// ParseTag parses a field spec from the value of a `wire` struct tag:
//
//	wire:"1,req,int32"
//	wire:"2,opt,string"
//	wire:"3,rep,sint64,unpacked"
//	wire:"4,opt,message"
//	wire:"5,opt,message,wrapper=int32"
//	wire:"6,rep,map[string]message"
//	wire:"7|8,oneof"
func ParseTag(tag string) (FieldSpec, error) {
	parts := strings.Split(tag, ",")
	if len(parts) < 2 {
		return FieldSpec{}, fmt.Errorf("malformed wire tag %q", tag)
	}
	if parts[1] == "oneof" {
		if len(parts) != 2 {
			return FieldSpec{}, fmt.Errorf("malformed wire tag %q: oneof takes no options", tag)
		}
		spec := FieldSpec{Kind: KindOneof}
		for _, s := range strings.Split(parts[0], "|") {
			n, err := parseNumber(s)
			if err != nil {
				return FieldSpec{}, fmt.Errorf("malformed wire tag %q: %w", tag, err)
			}
			spec.Variants = append(spec.Variants, n)
		}
		return spec, spec.validate()
	}
	if len(parts) < 3 {
		return FieldSpec{}, fmt.Errorf("malformed wire tag %q", tag)
	}

	var spec FieldSpec
	var err error
	if spec.Number, err = parseNumber(parts[0]); err != nil {
		return FieldSpec{}, fmt.Errorf("malformed wire tag %q: %w", tag, err)
	}
	switch parts[1] {
	case "req":
		spec.Cardinality = Required
	case "opt":
		spec.Cardinality = Optional
	case "rep":
		spec.Cardinality = Repeated
	default:
		return FieldSpec{}, fmt.Errorf("malformed wire tag %q: unknown cardinality %q", tag, parts[1])
	}

	kind := parts[2]
	switch {
	case kind == "message":
		spec.Kind = KindMessage
	case strings.HasPrefix(kind, "map["):
		spec.Kind = KindMap
		key, value, ok := strings.Cut(kind[len("map["):], "]")
		if !ok {
			return FieldSpec{}, fmt.Errorf("malformed wire tag %q: bad map kind", tag)
		}
		if spec.MapKey, ok = ParseSubtype(key); !ok {
			return FieldSpec{}, fmt.Errorf("malformed wire tag %q: unknown map key %q", tag, key)
		}
		if value != "message" {
			if spec.MapValue, ok = ParseSubtype(value); !ok {
				return FieldSpec{}, fmt.Errorf("malformed wire tag %q: unknown map value %q", tag, value)
			}
		}
	default:
		st, ok := ParseSubtype(kind)
		if !ok {
			return FieldSpec{}, fmt.Errorf("malformed wire tag %q: unknown kind %q", tag, kind)
		}
		spec.Kind = KindPrimitive
		spec.Subtype = st
	}

	for _, opt := range parts[3:] {
		switch {
		case opt == "unpacked":
			spec.Unpacked = true
		case strings.HasPrefix(opt, "wrapper="):
			st, ok := ParseSubtype(strings.TrimPrefix(opt, "wrapper="))
			if !ok || st == Enum {
				return FieldSpec{}, fmt.Errorf("malformed wire tag %q: bad wrapper %q", tag, opt)
			}
			spec.Wrapper = st
		default:
			return FieldSpec{}, fmt.Errorf("malformed wire tag %q: unknown option %q", tag, opt)
		}
	}
	return spec, spec.validate()
}

func parseNumber(s string) (codec.FieldNumber, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad field number %q", s)
	}
	return codec.FieldNumber(n), nil
}

func (f *FieldSpec) validate() error {
	for _, n := range f.Numbers() {
		if !n.Valid() {
			return fmt.Errorf("field number %d is out of range or reserved", n)
		}
	}
	switch f.Kind {
	case KindMap:
		if f.Cardinality != Repeated {
			return fmt.Errorf("map field %d must be repeated", f.Number)
		}
		switch f.MapKey {
		case Float, Double, Bytes, Enum:
			return fmt.Errorf("map field %d: %v is not a valid key", f.Number, f.MapKey)
		}
		if f.Wrapper != 0 && f.MapValue != 0 {
			return fmt.Errorf("map field %d: wrapper requires message values", f.Number)
		}
	case KindPrimitive:
		if f.Wrapper != 0 {
			return fmt.Errorf("field %d: wrapper requires a message kind", f.Number)
		}
		if f.Unpacked && (f.Cardinality != Repeated || !f.Subtype.Packable()) {
			return fmt.Errorf("field %d: unpacked applies only to repeated scalars", f.Number)
		}
	case KindMessage:
		if f.Unpacked {
			return fmt.Errorf("field %d: unpacked applies only to repeated scalars", f.Number)
		}
	}
	return nil
}
