// Package wiregen generates Go declarations for protobuf schemas. The
// generated types carry `wire` struct tags and are encoded and decoded by
// package record.
//
// Generation has two steps. Generate walks the given file descriptors and
// builds a namespace.Tree that holds one node per schema package, each with
// the Go source of its declarations. Emit then writes one file per node,
// named "wire.gen.go", in a directory hierarchy that mirrors the schema's
// packages.
//
// References between packages are resolved relative to the referring
// package and rendered as imports under Generator.ImportRoot. Types that
// live elsewhere, including the protobuf wrapper types, are mapped onto
// existing Go types with an external type table (see package externtype).
package wiregen

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/jhump/protoschema/externtype"
	"github.com/jhump/protoschema/namespace"
)

// RecordPackage is the import path of the package that generated code
// registers its oneofs with.
const RecordPackage = "github.com/jhump/protoschema/record"

// FileName is the name of the file emitted for each namespace node.
const FileName = "wire.gen.go"

// Generator turns file descriptors into Go declarations. Its fields control
// where generated packages live and which types are generated.
type Generator struct {
	// The Go import path of the output root. A schema package "foo.bar" is
	// generated into ImportRoot + "/foo/bar". Required.
	ImportRoot string

	// Types that are provided by the caller instead of generated. Entries
	// replace any well-known default with the same path.
	ExternTypes []externtype.Entry

	// If true, the protobuf wrapper types and google.protobuf.Empty are not
	// mapped onto Go scalars by default.
	NoWellKnownTypes bool

	// If non-nil, only types for which Filter returns true are generated.
	// References to filtered types are still rendered, so the caller must
	// supply them.
	Filter func(protoreflect.FullName) bool

	// By default, a message whose fields all belong to a single oneof is
	// generated as the oneof's interface, without a wrapping struct. If
	// true, such messages are generated as structs like any other.
	KeepOneofWrappers bool

	// Formats each emitted file. If nil, FormatSource is used.
	Formatter func(filename string, src []byte) ([]byte, error)

	// If true, a formatter failure fails Emit. Otherwise it is logged and
	// the file is written unformatted.
	StrictFormatting bool

	// Receives debug logs about skipped elements and warnings about
	// formatting. If nil, nothing is logged.
	Logger *zerolog.Logger
}

// Generate builds the namespace tree for the given files. Each file's
// top-level enums, messages, and services are generated along with their
// nested types. Files are visited in order and a file listed twice is only
// generated once.
func (g *Generator) Generate(files []protoreflect.FileDescriptor) (*namespace.Tree, error) {
	table, err := g.table()
	if err != nil {
		return nil, err
	}
	gen := &generation{
		Generator: g,
		table:     table,
		tree:      namespace.NewTree(),
		log:       g.logger(),
	}
	seen := map[string]struct{}{}
	for _, fd := range files {
		if _, ok := seen[fd.Path()]; ok {
			continue
		}
		seen[fd.Path()] = struct{}{}
		if err := gen.file(fd); err != nil {
			return nil, err
		}
	}
	if err := g.checkImportCycles(gen.tree); err != nil {
		return nil, err
	}
	return gen.tree, nil
}

// GenerateToFileSystem generates the given files and writes the output
// under rootDir, which corresponds to ImportRoot.
func (g *Generator) GenerateToFileSystem(files []protoreflect.FileDescriptor, rootDir string) error {
	tree, err := g.Generate(files)
	if err != nil {
		return err
	}
	return g.Emit(tree, func(name string) (io.WriteCloser, error) {
		fullPath := filepath.Join(rootDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
			return nil, err
		}
		return os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	})
}

func (g *Generator) table() (*externtype.Table, error) {
	root := g.ImportRoot
	switch {
	case root == "":
		return nil, &ConfigError{Err: fmt.Errorf("import root is required")}
	case strings.HasPrefix(root, "/") || strings.HasSuffix(root, "/"):
		return nil, &ConfigError{Err: fmt.Errorf("import root %q must not begin or end with a slash", root)}
	case strings.ContainsAny(root, " \t\r\n\"`\\"):
		return nil, &ConfigError{Err: fmt.Errorf("import root %q contains invalid characters", root)}
	}
	table, err := externtype.New(g.ExternTypes, !g.NoWellKnownTypes)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return table, nil
}

func (g *Generator) logger() *zerolog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// importPath returns the Go import path of the package at the given path
// in the tree.
func (g *Generator) importPath(segments []string) string {
	if len(segments) == 0 {
		return g.ImportRoot
	}
	return g.ImportRoot + "/" + path.Join(segments...)
}

// generation is the state of a single Generate call.
type generation struct {
	*Generator
	table *externtype.Table
	tree  *namespace.Tree
	log   *zerolog.Logger
}

func (gen *generation) file(fd protoreflect.FileDescriptor) error {
	pkgPath := packagePath(fd.Package())
	for i := 0; i < fd.Enums().Len(); i++ {
		ed := fd.Enums().Get(i)
		if gen.skip(ed) {
			continue
		}
		var src source
		gen.enum(gen.tree.Node(pkgPath), &src, ed)
		gen.tree.Insert(pkgPath, namespace.Decl{Name: typeName(ed), Source: src.String()})
	}
	for i := 0; i < fd.Messages().Len(); i++ {
		md := fd.Messages().Get(i)
		if gen.skip(md) {
			continue
		}
		var src source
		if err := gen.message(gen.tree.Node(pkgPath), &src, md); err != nil {
			return err
		}
		gen.tree.Insert(pkgPath, namespace.Decl{Name: typeName(md), Source: src.String()})
	}
	for i := 0; i < fd.Services().Len(); i++ {
		sd := fd.Services().Get(i)
		if gen.skip(sd) || sd.Methods().Len() == 0 {
			continue
		}
		var src source
		gen.service(&src, sd)
		gen.tree.Insert(pkgPath, namespace.Decl{Name: typeName(sd), Source: src.String()})
	}
	gen.skipExtensions(fd.Extensions())
	return nil
}

// skip reports whether d is supplied by the caller, either through the
// external type table or by being excluded by the filter.
func (gen *generation) skip(d protoreflect.Descriptor) bool {
	if m, ok := gen.table.Lookup(string(d.FullName())); ok {
		gen.log.Debug().
			Str("type", string(d.FullName())).
			Str("target", m.Target).
			Msg("skipping external type")
		return true
	}
	if gen.Filter != nil && !gen.Filter(d.FullName()) {
		gen.log.Debug().Str("type", string(d.FullName())).Msg("skipping filtered type")
		return true
	}
	return false
}

func (gen *generation) skipExtensions(exts protoreflect.ExtensionDescriptors) {
	for i := 0; i < exts.Len(); i++ {
		gen.log.Debug().
			Str("extension", string(exts.Get(i).FullName())).
			Msg("skipping extension")
	}
}

// unwrappable returns the oneof of a message whose fields all belong to
// that single oneof. Such a message can be represented by the oneof's
// interface alone.
func unwrappable(md protoreflect.MessageDescriptor) (protoreflect.OneofDescriptor, bool) {
	if md.IsMapEntry() || md.Fields().Len() == 0 || md.Oneofs().Len() != 1 {
		return nil, false
	}
	od := md.Oneofs().Get(0)
	if od.IsSynthetic() || od.Fields().Len() != md.Fields().Len() {
		return nil, false
	}
	return od, true
}

func (gen *generation) isUnion(md protoreflect.MessageDescriptor) bool {
	if gen.KeepOneofWrappers {
		return false
	}
	_, ok := unwrappable(md)
	return ok
}
