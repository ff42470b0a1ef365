package deps

import (
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/xlab/treeprint"
)

// Tree renders the graph as an indented tree rooted at the requested
// formulas. Build dependencies are marked.
func (g *Graph) Tree() string {
	tree := treeprint.NewWithRoot("request")
	for _, r := range g.roots {
		g.addBranch(tree, r, types.Runtime, map[string]bool{})
	}
	return tree.String()
}

func (g *Graph) addBranch(parent treeprint.Tree, name string, kind types.DependencyKind, path map[string]bool) {
	n, ok := g.nodes[name]
	if !ok {
		return
	}
	label := n.formula.Identity().String()
	if kind == types.Build {
		label += " (build)"
	}
	if path[name] || len(n.edges) == 0 {
		parent.AddNode(label)
		return
	}

	branch := parent.AddBranch(label)
	path[name] = true
	for _, d := range n.edges {
		g.addBranch(branch, d.Name, d.Kind, path)
	}
	delete(path, name)
}
