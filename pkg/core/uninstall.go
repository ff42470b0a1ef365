package core

import (
	"context"
	"slices"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/types"
)

// UninstallRequest names formulas to remove.
type UninstallRequest struct {
	Formulas []string
	// Force removes formulas other installed formulas still need.
	Force bool
}

// Uninstall removes each formula in turn and returns the receipts of
// those removed. Unless req.Force is set, a formula another installed
// formula depends on at runtime is refused before anything is removed.
func (e *Engine) Uninstall(ctx context.Context, req UninstallRequest) ([]*types.InstallManifest, error) {
	if len(req.Formulas) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no formulas named")
	}
	if !req.Force {
		if err := e.checkDependents(req.Formulas); err != nil {
			return nil, err
		}
	}

	var removed []*types.InstallManifest
	for _, name := range req.Formulas {
		m, err := e.orch.Uninstall(ctx, name)
		if err != nil {
			return removed, err
		}
		removed = append(removed, m)
	}
	return removed, nil
}

// checkDependents fails when an installed formula outside names needs one
// of names at runtime.
func (e *Engine) checkDependents(names []string) error {
	receipts, err := e.Receipts().List()
	if err != nil {
		return err
	}
	for _, m := range receipts {
		if m.State != types.StateInstalled || slices.Contains(names, m.Formula) {
			continue
		}
		f, err := e.catalog.Lookup(m.Formula, "= "+m.Version)
		if err != nil {
			// Not in the catalog anymore, so its dependencies are unknown.
			e.logger.Debug().Str("formula", m.Formula).Msg("Skipping dependent check for unknown formula")
			continue
		}
		for _, d := range runtimeDeps(f, m.Options) {
			if slices.Contains(names, d) {
				return errors.Newf(errors.ErrConflict, "%s is required by %s", d, m.Formula).
					WithDetail(errors.DetailFormula, d).
					WithDetail("required_by", m.Formula)
			}
		}
	}
	return nil
}

func runtimeDeps(f *types.Formula, active []string) []string {
	var out []string
	for _, d := range f.Dependencies {
		if d.Kind == types.Build {
			continue
		}
		if d.Optional && !slices.Contains(active, "with-"+d.Name) {
			continue
		}
		out = append(out, d.Name)
	}
	return out
}

// Installed returns the receipts of installed formulas, by name.
func (e *Engine) Installed() ([]*types.InstallManifest, error) {
	receipts, err := e.Receipts().List()
	if err != nil {
		return nil, err
	}
	out := receipts[:0]
	for _, m := range receipts {
		if m.State == types.StateInstalled {
			out = append(out, m)
		}
	}
	return out, nil
}

// Lookup parses "name" or "name@version" and returns the matching formula.
func (e *Engine) Lookup(ref string) (*types.Formula, error) {
	name, version, ok := strings.Cut(ref, "@")
	if !ok {
		return e.catalog.Get(name)
	}
	return e.catalog.Lookup(name, "= "+version)
}
