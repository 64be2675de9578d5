package wiregen

import (
	"fmt"
	"slices"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/jhump/protoschema/namespace"
)

// checkImportCycles fails if generated packages import one another in a
// cycle, which Go does not allow. This happens when a package and one of
// its ancestors refer to each other's types.
func (g *Generator) checkImportCycles(tree *namespace.Tree) error {
	nodes := map[string]*namespace.Node{}
	_ = tree.Walk(func(n *namespace.Node) error {
		nodes[g.importPath(n.Path())] = n
		return nil
	})

	const (
		visiting = 1
		done     = 2
	)
	state := map[*namespace.Node]int{}
	var stack []string
	var visit func(n *namespace.Node) error
	visit = func(n *namespace.Node) error {
		if state[n] != 0 {
			return nil
		}
		state[n] = visiting
		stack = append(stack, g.importPath(n.Path()))
		for _, imp := range n.Imports() {
			dep := nodes[imp.Path]
			if dep == nil {
				continue
			}
			if state[dep] == visiting {
				cycle := append(slices.Clone(stack[slices.Index(stack, imp.Path):]), imp.Path)
				return &UnsupportedError{
					Element: protoreflect.FullName(strings.Join(n.Path(), ".")),
					Reason:  fmt.Sprintf("generated packages import each other: %s", strings.Join(cycle, " -> ")),
				}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}
	return tree.Walk(visit)
}
