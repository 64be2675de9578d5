package wiregen

import (
	"fmt"
	"path"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/jhump/protoschema/codec"
	"github.com/jhump/protoschema/externtype"
	"github.com/jhump/protoschema/namespace"
	"github.com/jhump/protoschema/record"
)

type scalar struct {
	expr    string
	subtype record.Subtype
}

var scalars = map[protoreflect.Kind]scalar{
	protoreflect.Int32Kind:    {"int32", record.Int32},
	protoreflect.Sint32Kind:   {"int32", record.Sint32},
	protoreflect.Sfixed32Kind: {"int32", record.Sfixed32},
	protoreflect.Int64Kind:    {"int64", record.Int64},
	protoreflect.Sint64Kind:   {"int64", record.Sint64},
	protoreflect.Sfixed64Kind: {"int64", record.Sfixed64},
	protoreflect.Uint32Kind:   {"uint32", record.Uint32},
	protoreflect.Fixed32Kind:  {"uint32", record.Fixed32},
	protoreflect.Uint64Kind:   {"uint64", record.Uint64},
	protoreflect.Fixed64Kind:  {"uint64", record.Fixed64},
	protoreflect.FloatKind:    {"float32", record.Float},
	protoreflect.DoubleKind:   {"float64", record.Double},
	protoreflect.BoolKind:     {"bool", record.Bool},
	protoreflect.StringKind:   {"string", record.String},
	protoreflect.BytesKind:    {"[]byte", record.Bytes},
}

// typeRef is a resolved reference to a message or enum.
type typeRef struct {
	// expr is the Go type, qualified with an import alias when the type
	// lives in another package.
	expr string
	// wrapper is set when a message is mapped onto a Go scalar.
	wrapper record.Subtype
	// union is set when a message is represented by a oneof interface.
	union bool
}

// reference resolves the type of field fd, or of its map value, to a Go
// type usable from node. The external type table is consulted first;
// otherwise the target is reached relative to fd's package.
func (gen *generation) reference(node *namespace.Node, fd protoreflect.FieldDescriptor, target protoreflect.Descriptor) (typeRef, error) {
	name := target.FullName()
	if m, ok := gen.table.Lookup(string(name)); ok {
		return gen.externReference(node, fd, target, m)
	}

	from := strings.Join(packagePath(fd.ParentFile().Package()), ".")
	to := strings.Join(packagePath(target.ParentFile().Package()), ".")
	ref, err := namespace.Resolve(from, to)
	if err != nil {
		return typeRef{}, &UnresolvedReferenceError{Field: fd.FullName(), Type: name, Err: err}
	}
	expr := typeName(target)
	if !ref.IsLocal() {
		expr = node.Import(gen.importPath(ref.Apply(namespace.Split(from)))) + "." + expr
	}
	md, isMessage := target.(protoreflect.MessageDescriptor)
	return typeRef{expr: expr, union: isMessage && gen.isUnion(md)}, nil
}

func (gen *generation) externReference(node *namespace.Node, fd protoreflect.FieldDescriptor, target protoreflect.Descriptor, m externtype.Match) (typeRef, error) {
	var importPath, name string
	switch pkg := string(target.ParentFile().Package()); {
	case m.Exact():
		importPath, name = m.Split()
		if importPath == "" {
			return builtinReference(fd, target, name)
		}
	case pkg == m.Path || strings.HasPrefix(pkg, m.Path+"."):
		// the entry maps a package prefix onto an import path
		importPath = m.Target
		if sub := strings.TrimPrefix(pkg, m.Path); sub != "" {
			importPath += "/" + path.Join(packagePath(protoreflect.FullName(sub[1:]))...)
		}
		name = typeName(target)
	default:
		// the entry maps an enclosing message, so target is nested in it
		importPath, name = m.Split()
		if name != "" {
			name += "_" + camelCase(m.Remainder)
		}
	}
	if name == "" {
		return typeRef{}, &UnresolvedReferenceError{
			Field: fd.FullName(),
			Type:  target.FullName(),
			Err:   fmt.Errorf("external type %q maps to %q, which names no type", m.Path, m.Target),
		}
	}
	return typeRef{expr: node.Import(importPath) + "." + name}, nil
}

// builtinReference handles a type mapped onto a predeclared Go type. Enums
// may be mapped onto int32. Messages may be mapped onto struct{}, or onto
// the Go scalar matching their field 1, in which case they are wrappers.
func builtinReference(fd protoreflect.FieldDescriptor, target protoreflect.Descriptor, name string) (typeRef, error) {
	switch t := target.(type) {
	case protoreflect.EnumDescriptor:
		if name == "int32" {
			return typeRef{expr: name}, nil
		}
	case protoreflect.MessageDescriptor:
		if name == "struct{}" {
			return typeRef{expr: name}, nil
		}
		if f1 := t.Fields().ByNumber(1); f1 != nil && !f1.IsList() && f1.ContainingOneof() == nil {
			if sc, ok := scalars[f1.Kind()]; ok && sc.expr == name {
				return typeRef{expr: name, wrapper: sc.subtype}, nil
			}
		}
	}
	return typeRef{}, &UnsupportedError{
		Element: fd.FullName(),
		Reason:  fmt.Sprintf("%s cannot be represented as %s", target.FullName(), name),
	}
}

// valueType is the Go type of a single value of a field.
type valueType struct {
	expr    string
	subtype record.Subtype
	message bool
	wrapper record.Subtype
	union   bool
}

// elem is the Go type of a message value held in a slice, map, or
// singular field.
func (v valueType) elem() string {
	if v.message && v.wrapper == 0 && !v.union {
		return "*" + v.expr
	}
	return v.expr
}

func (v valueType) optional() string {
	switch {
	case v.message && v.wrapper == 0:
		return v.elem()
	case v.expr == "[]byte":
		return v.expr
	}
	return "*" + v.expr
}

func (gen *generation) value(node *namespace.Node, fd, vd protoreflect.FieldDescriptor) (valueType, error) {
	switch vd.Kind() {
	case protoreflect.GroupKind:
		return valueType{}, &UnsupportedError{Element: fd.FullName(), Reason: "group fields are not supported"}
	case protoreflect.EnumKind:
		ref, err := gen.reference(node, fd, vd.Enum())
		if err != nil {
			return valueType{}, err
		}
		return valueType{expr: ref.expr, subtype: record.Enum}, nil
	case protoreflect.MessageKind:
		ref, err := gen.reference(node, fd, vd.Message())
		if err != nil {
			return valueType{}, err
		}
		return valueType{expr: ref.expr, message: true, wrapper: ref.wrapper, union: ref.union}, nil
	}
	sc, ok := scalars[vd.Kind()]
	if !ok {
		return valueType{}, &UnsupportedError{Element: fd.FullName(), Reason: fmt.Sprintf("unsupported kind %v", vd.Kind())}
	}
	return valueType{expr: sc.expr, subtype: sc.subtype}, nil
}

// fieldType returns the Go type of fd and the spec for its wire tag.
// Cardinality is passed in because oneof variants are always required.
func (gen *generation) fieldType(node *namespace.Node, fd protoreflect.FieldDescriptor, card record.Cardinality) (string, record.FieldSpec, error) {
	spec := record.FieldSpec{Number: codec.FieldNumber(fd.Number()), Cardinality: card}
	if fd.IsMap() {
		key, ok := scalars[fd.MapKey().Kind()]
		if !ok {
			return "", spec, &UnsupportedError{Element: fd.FullName(), Reason: fmt.Sprintf("unsupported map key kind %v", fd.MapKey().Kind())}
		}
		val, err := gen.value(node, fd, fd.MapValue())
		if err != nil {
			return "", spec, err
		}
		spec.Kind = record.KindMap
		spec.MapKey = key.subtype
		if val.message {
			spec.Wrapper = val.wrapper
		} else {
			spec.MapValue = val.subtype
		}
		return fmt.Sprintf("map[%s]%s", key.expr, val.elem()), spec, nil
	}

	val, err := gen.value(node, fd, fd)
	if err != nil {
		return "", spec, err
	}
	if val.message {
		spec.Kind = record.KindMessage
		spec.Wrapper = val.wrapper
	} else {
		spec.Kind = record.KindPrimitive
		spec.Subtype = val.subtype
		spec.Unpacked = card == record.Repeated && val.subtype.Packable() && !fd.IsPacked()
	}
	switch card {
	case record.Repeated:
		return "[]" + val.elem(), spec, nil
	case record.Optional:
		return val.optional(), spec, nil
	default:
		return val.elem(), spec, nil
	}
}

// cardinality classifies a field that is not part of a real oneof.
func cardinality(fd protoreflect.FieldDescriptor) record.Cardinality {
	switch {
	case fd.IsList() || fd.IsMap():
		return record.Repeated
	case fd.Cardinality() == protoreflect.Required:
		return record.Required
	case fd.HasPresence():
		return record.Optional
	default:
		return record.Required
	}
}
