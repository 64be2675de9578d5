package wiregen

import (
	"go/token"
	"path"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// packagePath converts a dotted schema package into the segments of its Go
// package directory.
func packagePath(pkg protoreflect.FullName) []string {
	if pkg == "" {
		return nil
	}
	parts := strings.Split(string(pkg), ".")
	for i, p := range parts {
		parts[i] = packageName(p)
	}
	return parts
}

// packageName converts one segment into a valid, lower-case Go package name.
func packageName(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	switch {
	case name == "":
		return "x"
	case name[0] >= '0' && name[0] <= '9':
		return "v" + name
	case token.IsKeyword(name):
		return name + "_"
	}
	return name
}

// rootPackageName is the package name used for the output root.
func rootPackageName(importRoot string) string {
	return packageName(path.Base(importRoot))
}

// camelCase converts a schema identifier into an exported Go identifier.
// Dots become underscores, so a nested name like "Outer.inner_type" becomes
// "Outer_InnerType".
func camelCase(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.' && i+1 < len(s) && isLower(s[i+1]):
			// the next letter is upper-cased below
		case c == '.':
			b = append(b, '_')
		case c == '_' && (i == 0 || s[i-1] == '.'):
			// a leading underscore would leave the name unexported
			b = append(b, 'X')
		case c == '_' && i+1 < len(s) && isLower(s[i+1]):
		case isDigit(c):
			b = append(b, c)
		default:
			if isLower(c) {
				c -= 'a' - 'A'
			}
			b = append(b, c)
			for ; i+1 < len(s) && isLower(s[i+1]); i++ {
				b = append(b, s[i+1])
			}
		}
	}
	return string(b)
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// typeName returns the Go name of a message or enum: its name relative to
// its package, with nesting flattened.
func typeName(d protoreflect.Descriptor) string {
	name := string(d.FullName())
	if pkg := string(d.ParentFile().Package()); pkg != "" {
		name = strings.TrimPrefix(name, pkg+".")
	}
	name = camelCase(name)
	if name == manifestVar {
		name += "_"
	}
	return name
}

func fieldName(fd protoreflect.FieldDescriptor) string {
	return camelCase(string(fd.Name()))
}

// oneofInterface is the name of the interface implemented by the variants of
// a oneof.
func oneofInterface(od protoreflect.OneofDescriptor) string {
	return "is" + typeName(od.Parent()) + "_" + camelCase(string(od.Name()))
}

// variantName is the name of the struct holding one alternative of a oneof.
// It gets a trailing underscore if a nested message or enum of the same
// parent already uses the name.
func variantName(fd protoreflect.FieldDescriptor) string {
	md := fd.ContainingMessage()
	name := typeName(md) + "_" + fieldName(fd)
	if nestedNameTaken(md, name) {
		name += "_"
	}
	return name
}

func nestedNameTaken(md protoreflect.MessageDescriptor, name string) bool {
	for i := 0; i < md.Messages().Len(); i++ {
		if typeName(md.Messages().Get(i)) == name {
			return true
		}
	}
	for i := 0; i < md.Enums().Len(); i++ {
		if typeName(md.Enums().Get(i)) == name {
			return true
		}
	}
	return false
}

// enumValueName is the name of the constant for an enum value.
func enumValueName(vd protoreflect.EnumValueDescriptor) string {
	return typeName(vd.Parent()) + "_" + string(vd.Name())
}

// methodConstName is the name of the constant holding a method's full name.
func methodConstName(md protoreflect.MethodDescriptor) string {
	return typeName(md.Parent()) + "_" + camelCase(string(md.Name())) + "_FullMethodName"
}
