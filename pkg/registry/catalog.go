package registry

import (
	"iter"
	"sort"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/types"
	version "github.com/hashicorp/go-version"
)

// Source supplies formulas to a catalog.
type Source interface {
	Formulas() ([]*types.Formula, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() ([]*types.Formula, error)

// Formulas implements Source.
func (f SourceFunc) Formulas() ([]*types.Formula, error) { return f() }

// Static is a Source over a fixed list.
func Static(formulas ...*types.Formula) Source {
	return SourceFunc(func() ([]*types.Formula, error) { return formulas, nil })
}

type entry struct {
	formula *types.Formula
	version *version.Version
}

// Catalog is the immutable set of known formulas. It is built once by
// Load and is safe for concurrent reads.
type Catalog struct {
	// byName holds every version of a formula, newest first.
	byName map[string][]entry
	names  []string
}

// Load validates and indexes every formula from sources. Two formulas
// with the same name and version are an error.
func Load(sources ...Source) (*Catalog, error) {
	seen := New[*types.Formula]("formula")
	c := &Catalog{byName: make(map[string][]entry)}

	for _, src := range sources {
		formulas, err := src.Formulas()
		if err != nil {
			return nil, err
		}
		for _, f := range formulas {
			if err := f.Validate(); err != nil {
				return nil, err
			}
			v, err := version.NewVersion(f.Version)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrInvalidInput, "formula %q has invalid version %q", f.Name, f.Version).
					WithDetail(errors.DetailFormula, f.Name)
			}
			if err := seen.Register(f.Identity().String(), f); err != nil {
				return nil, err
			}
			c.byName[f.Name] = append(c.byName[f.Name], entry{formula: f, version: v})
		}
	}

	for name, entries := range c.byName {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].version.GreaterThan(entries[j].version)
		})
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Get returns the newest version of name.
func (c *Catalog) Get(name string) (*types.Formula, error) {
	entries, ok := c.byName[name]
	if !ok {
		return nil, c.notFound(name, "")
	}
	return entries[0].formula, nil
}

// Lookup returns the newest version of name satisfying constraint, such
// as ">= 5.6, < 5.7". An empty constraint behaves like Get.
func (c *Catalog) Lookup(name, constraint string) (*types.Formula, error) {
	if constraint == "" {
		return c.Get(name)
	}
	cons, err := version.NewConstraint(constraint)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid version constraint %q", constraint)
	}
	entries, ok := c.byName[name]
	if !ok {
		return nil, c.notFound(name, constraint)
	}
	for _, e := range entries {
		if cons.Check(e.version) {
			return e.formula, nil
		}
	}
	return nil, c.notFound(name, constraint)
}

// Versions lists the known versions of name, newest first.
func (c *Catalog) Versions(name string) []string {
	entries := c.byName[name]
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.formula.Version
	}
	return out
}

// Names returns every formula name, sorted.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of formula names.
func (c *Catalog) Len() int {
	return len(c.names)
}

// List yields every formula identity, by name and then oldest version
// first. The sequence can be ranged over any number of times.
func (c *Catalog) List() iter.Seq[types.Identity] {
	return func(yield func(types.Identity) bool) {
		for _, name := range c.names {
			entries := c.byName[name]
			for i := len(entries) - 1; i >= 0; i-- {
				if !yield(entries[i].formula.Identity()) {
					return
				}
			}
		}
	}
}

func (c *Catalog) notFound(name, constraint string) error {
	var err *errors.CellarError
	if constraint == "" {
		err = errors.Newf(errors.ErrNotFound, "no formula named %q", name)
	} else {
		err = errors.Newf(errors.ErrNotFound, "no version of %q matches %q", name, constraint).
			WithDetail("constraint", constraint)
	}
	err.WithDetail(errors.DetailFormula, name)
	if _, known := c.byName[name]; !known {
		if s, ok := Suggest(name, c.names); ok {
			err.WithDetail("suggestion", s)
		}
	}
	return err
}
