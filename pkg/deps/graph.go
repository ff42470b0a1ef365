package deps

import (
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/types"
)

// Catalog is the formula lookup the graph is built from.
type Catalog interface {
	Get(name string) (*types.Formula, error)
}

// Selector resolves the option selection for a formula. It decides which
// optional dependencies are followed.
type Selector func(f *types.Formula) (types.Selection, error)

// DefaultSelector resolves every formula to its declared option defaults.
func DefaultSelector(f *types.Formula) (types.Selection, error) {
	values := make(map[string]bool, len(f.Options))
	for _, o := range f.Options {
		values[o.Name] = o.Default
	}
	return types.NewSelection(values), nil
}

type node struct {
	formula   *types.Formula
	selection types.Selection
	// edges are the dependencies that apply under selection, in
	// declaration order.
	edges []types.Dependency
}

// Graph is the transitive closure of a request.
type Graph struct {
	catalog Catalog
	roots   []string
	nodes   map[string]*node
}

// Build loads the transitive closure of roots from catalog. An optional
// dependency is followed only when its dependent has the option
// "with-<dependency>" active.
func Build(catalog Catalog, roots []string, sel Selector) (*Graph, error) {
	if sel == nil {
		sel = DefaultSelector
	}
	g := &Graph{
		catalog: catalog,
		nodes:   make(map[string]*node),
	}

	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		if seen[r] {
			continue
		}
		seen[r] = true
		g.roots = append(g.roots, r)
	}

	var load func(name, requiredBy string) error
	load = func(name, requiredBy string) error {
		if _, ok := g.nodes[name]; ok {
			return nil
		}
		f, err := catalog.Get(name)
		if err != nil {
			if requiredBy != "" && errors.IsErrorCode(err, errors.ErrNotFound) {
				return errors.Wrapf(err, errors.ErrNotFound, "%s depends on unknown formula %q", requiredBy, name).
					WithDetail(errors.DetailFormula, requiredBy).
					WithDetail("dependency", name)
			}
			return err
		}
		selection, err := sel(f)
		if err != nil {
			return err
		}

		n := &node{formula: f, selection: selection}
		for _, d := range f.Dependencies {
			if d.Optional && !selection.Enabled("with-"+d.Name) {
				continue
			}
			n.edges = append(n.edges, d)
		}
		g.nodes[name] = n

		for _, d := range n.edges {
			if err := load(d.Name, name); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range g.roots {
		if err := load(r, ""); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Roots returns the requested formula names in request order.
func (g *Graph) Roots() []string {
	return append([]string(nil), g.roots...)
}

// Len returns the number of formulas in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Formula returns a formula in the graph.
func (g *Graph) Formula(name string) (*types.Formula, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, false
	}
	return n.formula, true
}

// Edges returns the dependencies of name that apply in this graph.
func (g *Graph) Edges(name string) []types.Dependency {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return append([]types.Dependency(nil), n.edges...)
}

// order returns names in dependency-first order or a CycleError.
func (g *Graph) order() ([]string, error) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))
	var (
		stack []string
		out   []string
	)

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case grey:
			return cycleError(stack, name)
		}
		color[name] = grey
		stack = append(stack, name)
		for _, d := range g.nodes[name].edges {
			if err := visit(d.Name); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		out = append(out, name)
		return nil
	}

	for _, r := range g.roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cycleError(stack []string, back string) error {
	start := 0
	for i, s := range stack {
		if s == back {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), stack[start:]...), back)
	return errors.Newf(errors.ErrCycle, "dependency cycle: %s", strings.Join(cycle, " -> ")).
		WithDetail(errors.DetailFormula, back).
		WithDetail("cycle", cycle)
}

// runtimeClosure returns the formulas reachable from the roots through
// runtime edges only.
func (g *Graph) runtimeClosure() map[string]bool {
	reach := make(map[string]bool, len(g.nodes))
	var walk func(name string)
	walk = func(name string) {
		if reach[name] {
			return
		}
		reach[name] = true
		for _, d := range g.nodes[name].edges {
			if d.Kind == types.Runtime {
				walk(d.Name)
			}
		}
	}
	for _, r := range g.roots {
		walk(r)
	}
	return reach
}
