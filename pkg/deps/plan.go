package deps

import (
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/types"
)

// Step is one formula of a plan.
type Step struct {
	Formula *types.Formula
	Options types.Selection
	// Deps are the step's direct dependencies, all earlier in the plan.
	Deps []string
	// BuildOnly is set when nothing requested needs this formula at
	// runtime. Such formulas may be pruned after their dependents built.
	BuildOnly bool
	// Root is set for formulas named in the request.
	Root bool
}

// Name is the step's formula name.
func (s Step) Name() string {
	return s.Formula.Name
}

// Plan is an ordered install sequence in which every formula comes after
// all of its dependencies.
type Plan struct {
	Steps []Step
	index map[string]int
}

// Names returns the formula names in install order.
func (p *Plan) Names() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Name()
	}
	return out
}

// Step returns the step for name.
func (p *Plan) Step(name string) (Step, bool) {
	i, ok := p.index[name]
	if !ok {
		return Step{}, false
	}
	return p.Steps[i], true
}

// BuildOnly returns the names of build-only steps in install order.
func (p *Plan) BuildOnly() []string {
	var out []string
	for _, s := range p.Steps {
		if s.BuildOnly {
			out = append(out, s.Name())
		}
	}
	return out
}

// Dependents returns every step that transitively depends on name.
func (p *Plan) Dependents(name string) []string {
	hit := map[string]bool{name: true}
	var out []string
	// Steps are topologically ordered, so one forward pass suffices.
	for _, s := range p.Steps {
		for _, d := range s.Deps {
			if hit[d] && !hit[s.Name()] {
				hit[s.Name()] = true
				out = append(out, s.Name())
			}
		}
	}
	return out
}

// Resolve orders the graph into a Plan. installed names formulas already
// present at the prefix; they take part in conflict detection.
func (g *Graph) Resolve(installed []string) (*Plan, error) {
	order, err := g.order()
	if err != nil {
		return nil, err
	}
	if err := g.checkConflicts(order, installed); err != nil {
		return nil, err
	}

	runtime := g.runtimeClosure()
	roots := make(map[string]bool, len(g.roots))
	for _, r := range g.roots {
		roots[r] = true
	}

	plan := &Plan{
		Steps: make([]Step, 0, len(order)),
		index: make(map[string]int, len(order)),
	}
	for _, name := range order {
		n := g.nodes[name]
		deps := make([]string, 0, len(n.edges))
		for _, d := range n.edges {
			deps = append(deps, d.Name)
		}
		plan.index[name] = len(plan.Steps)
		plan.Steps = append(plan.Steps, Step{
			Formula:   n.formula,
			Options:   n.selection,
			Deps:      deps,
			BuildOnly: !runtime[name],
			Root:      roots[name],
		})
	}
	return plan, nil
}

// checkConflicts fails when two formulas of the resolved set, or one of
// them and an installed formula, declare a conflict in either direction.
func (g *Graph) checkConflicts(order, installed []string) error {
	present := make(map[string]bool, len(order)+len(installed))
	for _, n := range order {
		present[n] = true
	}
	for _, n := range installed {
		present[n] = true
	}

	for _, name := range order {
		for _, c := range g.nodes[name].formula.Conflicts {
			if present[c.Name] {
				return conflictError(name, c)
			}
		}
	}

	// Installed formulas may declare the conflict themselves.
	for _, inst := range installed {
		if _, ok := g.nodes[inst]; ok {
			continue
		}
		f, err := g.catalog.Get(inst)
		if err != nil {
			continue
		}
		for _, c := range f.Conflicts {
			if _, ok := g.nodes[c.Name]; ok {
				return conflictError(inst, c)
			}
		}
	}
	return nil
}

func conflictError(name string, c types.Conflict) error {
	msg := errors.Newf(errors.ErrConflict, "%s conflicts with %s", name, c.Name)
	if c.Reason != "" {
		msg.Message += ": " + c.Reason
	}
	return msg.
		WithDetail(errors.DetailFormula, name).
		WithDetail("conflicts_with", c.Name).
		WithDetail("reason", c.Reason)
}
