package wiregen

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/jhump/protoschema/codec"
	"github.com/jhump/protoschema/namespace"
	"github.com/jhump/protoschema/record"
)

// source accumulates generated Go code.
type source struct {
	strings.Builder
}

func (s *source) emit(format string, args ...any) {
	fmt.Fprintf(s, format+"\n", args...)
}

// comment renders the leading comment of d, if the descriptor has source
// info.
func (s *source) comment(indent string, d protoreflect.Descriptor) {
	loc := d.ParentFile().SourceLocations().ByDescriptor(d)
	text := strings.TrimRight(loc.LeadingComments, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		s.emit("%s//%s", indent, strings.TrimRight(line, " \t"))
	}
}

func (gen *generation) enum(node *namespace.Node, src *source, ed protoreflect.EnumDescriptor) {
	name := typeName(ed)
	values := ed.Values()

	src.comment("", ed)
	src.emit("type %s int32", name)
	src.emit("")
	src.emit("const (")
	for i := 0; i < values.Len(); i++ {
		vd := values.Get(i)
		src.comment("\t", vd)
		src.emit("\t%s %s = %d", enumValueName(vd), name, vd.Number())
	}
	src.emit(")")
	src.emit("")

	// aliases share a number; the name map keeps the first
	src.emit("var %s_name = map[int32]string{", name)
	seen := map[protoreflect.EnumNumber]struct{}{}
	for i := 0; i < values.Len(); i++ {
		vd := values.Get(i)
		if _, ok := seen[vd.Number()]; ok {
			continue
		}
		seen[vd.Number()] = struct{}{}
		src.emit("\t%d: %q,", vd.Number(), vd.Name())
	}
	src.emit("}")
	src.emit("")
	src.emit("var %s_value = map[string]int32{", name)
	for i := 0; i < values.Len(); i++ {
		vd := values.Get(i)
		src.emit("\t%q: %d,", vd.Name(), vd.Number())
	}
	src.emit("}")
	src.emit("")

	strconv := node.Import("strconv")
	src.emit("func (x %s) String() string {", name)
	src.emit("\tif s, ok := %s_name[int32(x)]; ok {", name)
	src.emit("\t\treturn s")
	src.emit("\t}")
	src.emit("\treturn %s.Itoa(int(x))", strconv)
	src.emit("}")
}

func (gen *generation) message(node *namespace.Node, src *source, md protoreflect.MessageDescriptor) error {
	if od, ok := unwrappable(md); ok && !gen.KeepOneofWrappers {
		if err := gen.union(node, src, md, od); err != nil {
			return err
		}
	} else if err := gen.structType(node, src, md); err != nil {
		return err
	}

	for i := 0; i < md.Enums().Len(); i++ {
		ed := md.Enums().Get(i)
		if gen.skip(ed) {
			continue
		}
		src.emit("")
		gen.enum(node, src, ed)
	}
	for i := 0; i < md.Messages().Len(); i++ {
		nested := md.Messages().Get(i)
		if nested.IsMapEntry() || gen.skip(nested) {
			continue
		}
		src.emit("")
		if err := gen.message(node, src, nested); err != nil {
			return err
		}
	}
	gen.skipExtensions(md.Extensions())
	return nil
}

// structType renders a message as a struct. A oneof becomes a single interface
// field placed where its first member is declared.
func (gen *generation) structType(node *namespace.Node, src *source, md protoreflect.MessageDescriptor) error {
	name := typeName(md)
	src.comment("", md)
	src.emit("type %s struct {", name)
	var oneofs []protoreflect.OneofDescriptor
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if od := fd.ContainingOneof(); od != nil && !od.IsSynthetic() {
			if od.Fields().Get(0).Number() != fd.Number() {
				continue
			}
			oneofs = append(oneofs, od)
			spec := record.FieldSpec{Kind: record.KindOneof}
			for j := 0; j < od.Fields().Len(); j++ {
				spec.Variants = append(spec.Variants, codec.FieldNumber(od.Fields().Get(j).Number()))
			}
			src.comment("\t", od)
			src.emit("\t%s %s `wire:\"%s\"`", camelCase(string(od.Name())), oneofInterface(od), spec.String())
			continue
		}
		typ, spec, err := gen.fieldType(node, fd, cardinality(fd))
		if err != nil {
			return err
		}
		src.comment("\t", fd)
		src.emit("\t%s %s `wire:\"%s\"`", fieldName(fd), typ, spec.String())
	}
	src.emit("}")

	for _, od := range oneofs {
		iface := oneofInterface(od)
		src.emit("")
		if err := gen.oneof(node, src, iface, iface, od); err != nil {
			return err
		}
	}
	return nil
}

// union renders a message whose only content is a oneof as the oneof's
// interface.
func (gen *generation) union(node *namespace.Node, src *source, md protoreflect.MessageDescriptor, od protoreflect.OneofDescriptor) error {
	name := typeName(md)
	src.comment("", md)
	return gen.oneof(node, src, name, "is"+name, od)
}

// oneof renders the interface of a oneof, one struct per variant, and the
// registration that lets package record find the variants.
func (gen *generation) oneof(node *namespace.Node, src *source, iface, method string, od protoreflect.OneofDescriptor) error {
	src.emit("type %s interface {", iface)
	src.emit("\t%s()", method)
	src.emit("}")

	variants := make([]string, 0, od.Fields().Len())
	for i := 0; i < od.Fields().Len(); i++ {
		fd := od.Fields().Get(i)
		typ, spec, err := gen.fieldType(node, fd, record.Required)
		if err != nil {
			return err
		}
		variant := variantName(fd)
		variants = append(variants, "&"+variant+"{}")
		src.emit("")
		src.comment("", fd)
		src.emit("type %s struct {", variant)
		src.emit("\t%s %s `wire:\"%s\"`", fieldName(fd), typ, spec.String())
		src.emit("}")
	}
	src.emit("")
	for i := 0; i < od.Fields().Len(); i++ {
		src.emit("func (*%s) %s() {}", variantName(od.Fields().Get(i)), method)
	}
	src.emit("")
	src.emit("func init() {")
	src.emit("\t%s.RegisterOneof[%s](%s)", node.Import(RecordPackage), iface, strings.Join(variants, ", "))
	src.emit("}")
	return nil
}

// service renders the full method names of a service's methods, which is
// what a grpc-go client needs to invoke them.
func (gen *generation) service(src *source, sd protoreflect.ServiceDescriptor) {
	src.comment("", sd)
	src.emit("const (")
	methods := sd.Methods()
	for i := 0; i < methods.Len(); i++ {
		md := methods.Get(i)
		src.emit("\t%s = %q", methodConstName(md), fmt.Sprintf("/%s/%s", sd.FullName(), md.Name()))
	}
	src.emit(")")
}
