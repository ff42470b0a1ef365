package formulas

import (
	"github.com/arthur-debert/cellar/pkg/registry"
	"github.com/arthur-debert/cellar/pkg/types"
)

// All returns fresh copies of every bundled formula, sorted by name.
func All() []*types.Formula {
	return []*types.Formula{
		Algol68g(),
		PerconaServer(),
		RPM(),
		Yeti(),
	}
}

// Builtin is the registry source for the bundled formulas.
func Builtin() registry.Source {
	return registry.SourceFunc(func() ([]*types.Formula, error) {
		return All(), nil
	})
}
