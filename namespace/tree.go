// Package namespace builds the tree of generated Go packages and computes
// relative references between them.
//
// A Tree mirrors the dotted package hierarchy of a schema. Each Node holds the
// declarations generated for one package, the imports those declarations
// need, and its child packages. Nodes are created on demand and siblings are
// never duplicated.
package namespace

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Decl is one top-level generated declaration.
type Decl struct {
	// Name is the primary Go identifier declared.
	Name string
	// Source is the Go source text of the declaration.
	Source string
}

// Import is an import needed by a node's declarations.
type Import struct {
	Path  string
	Alias string
}

// Node is one package in the tree.
type Node struct {
	name     string
	path     []string
	parent   *Node
	decls    []Decl
	children []*Node
	index    map[string]*Node
	imports  map[string]string
	aliases  map[string]string
}

// Name returns the node's own segment. It is empty for the root.
func (n *Node) Name() string {
	return n.name
}

// Path returns the segments from the root to this node.
func (n *Node) Path() []string {
	return append([]string(nil), n.path...)
}

// Parent returns the enclosing node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Decls returns the declarations in insertion order.
func (n *Node) Decls() []Decl {
	return n.decls
}

// Children returns the child nodes, sorted by name.
func (n *Node) Children() []*Node {
	children := append([]*Node(nil), n.children...)
	sort.Slice(children, func(i, j int) bool {
		return children[i].name < children[j].name
	})
	return children
}

// Child returns the child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	return n.index[name]
}

func (n *Node) child(name string) *Node {
	if c := n.index[name]; c != nil {
		return c
	}
	c := &Node{
		name:   name,
		path:   append(n.Path(), name),
		parent: n,
	}
	if n.index == nil {
		n.index = map[string]*Node{}
	}
	n.index[name] = c
	n.children = append(n.children, c)
	return c
}

// Import records that the node's declarations refer to importPath and
// returns the alias to qualify references with. The alias is the last path
// element, with a numeric suffix if that is already in use by another path.
// Aliases depend only on the order of calls, so generation is deterministic.
func (n *Node) Import(importPath string) string {
	n.initImports()
	if alias, ok := n.imports[importPath]; ok {
		return alias
	}
	base := aliasBase(importPath)
	alias := base
	for i := 2; ; i++ {
		if _, taken := n.aliases[alias]; !taken {
			break
		}
		alias = fmt.Sprintf("%s%d", base, i)
	}
	n.imports[importPath] = alias
	n.aliases[alias] = importPath
	return alias
}

func (n *Node) initImports() {
	if n.imports == nil {
		n.imports = map[string]string{}
		n.aliases = map[string]string{}
	}
}

func aliasBase(importPath string) string {
	base := path.Base(importPath)
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if sb.Len() == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "pkg"
	}
	return sb.String()
}

// Imports returns the node's imports sorted by path.
func (n *Node) Imports() []Import {
	imports := make([]Import, 0, len(n.imports))
	for p, a := range n.imports {
		imports = append(imports, Import{Path: p, Alias: a})
	}
	sort.Slice(imports, func(i, j int) bool {
		return imports[i].Path < imports[j].Path
	})
	return imports
}

// Tree is the namespace hierarchy for one generation run.
type Tree struct {
	root Node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Root returns the root node, which represents the empty package.
func (t *Tree) Root() *Node {
	return &t.root
}

// Node returns the node at the given path, creating it and any missing
// ancestors.
func (t *Tree) Node(path []string) *Node {
	n := &t.root
	for _, seg := range path {
		n = n.child(seg)
	}
	return n
}

// Lookup returns the node at the given path without creating anything.
func (t *Tree) Lookup(path []string) *Node {
	n := &t.root
	for _, seg := range path {
		if n = n.Child(seg); n == nil {
			return nil
		}
	}
	return n
}

// Insert adds a declaration to the node at the given path.
func (t *Tree) Insert(path []string, decl Decl) *Node {
	n := t.Node(path)
	n.decls = append(n.decls, decl)
	return n
}

// Walk calls fn for every node, parents before children and siblings in
// name order. It stops at the first error.
func (t *Tree) Walk(fn func(*Node) error) error {
	return walk(&t.root, fn)
}

func walk(n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}
