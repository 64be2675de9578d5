package wiregen

import (
	"fmt"
	"io"
	"path"

	"golang.org/x/tools/imports"

	"github.com/jhump/protoschema/namespace"
)

// manifestVar names the variable listing a unit's child packages. Schema
// types with this name get a trailing underscore.
const manifestVar = "Namespaces"

// FormatSource formats generated Go source like gofmt, without adding or
// removing imports.
func FormatSource(filename string, src []byte) ([]byte, error) {
	return imports.Process(filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
}

// Emit writes one file for every node of tree that has declarations or
// children. The open function is called with a slash-separated name
// relative to the output root, such as "foo/bar/wire.gen.go", and the
// returned writer is closed after the file is written.
//
// Each file declares a Namespaces variable listing the import paths of the
// node's child packages.
func (g *Generator) Emit(tree *namespace.Tree, open func(name string) (io.WriteCloser, error)) error {
	log := g.logger()
	format := g.Formatter
	if format == nil {
		format = FormatSource
	}
	return tree.Walk(func(n *namespace.Node) error {
		if len(n.Decls()) == 0 && len(n.Children()) == 0 {
			return nil
		}
		name := path.Join(append(n.Path(), FileName)...)
		src := []byte(g.unit(n))
		if formatted, err := format(name, src); err != nil {
			if g.StrictFormatting {
				return &FormatError{File: name, Err: err}
			}
			log.Warn().Err(err).Str("file", name).Msg("failed to format generated code; writing it unformatted")
		} else {
			src = formatted
		}

		w, err := open(name)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		_, err = w.Write(src)
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Debug().Str("file", name).Int("decls", len(n.Decls())).Msg("wrote package")
		return nil
	})
}

// unit renders the complete Go file for a node.
func (g *Generator) unit(n *namespace.Node) string {
	var src source
	src.emit("// Code generated by wiregen. DO NOT EDIT.")
	src.emit("")
	pkg := n.Name()
	if pkg == "" {
		pkg = rootPackageName(g.ImportRoot)
	}
	src.emit("package %s", pkg)

	if imps := n.Imports(); len(imps) > 0 {
		src.emit("")
		src.emit("import (")
		for _, imp := range imps {
			if imp.Alias == path.Base(imp.Path) {
				src.emit("\t%q", imp.Path)
			} else {
				src.emit("\t%s %q", imp.Alias, imp.Path)
			}
		}
		src.emit(")")
	}

	src.emit("")
	src.emit("// %s lists the import paths of the packages nested in this one.", manifestVar)
	children := n.Children()
	if len(children) == 0 {
		src.emit("var %s []string", manifestVar)
	} else {
		src.emit("var %s = []string{", manifestVar)
		for _, c := range children {
			src.emit("\t%q,", g.importPath(c.Path()))
		}
		src.emit("}")
	}

	for _, d := range n.Decls() {
		src.emit("")
		src.WriteString(d.Source)
	}
	return src.String()
}
