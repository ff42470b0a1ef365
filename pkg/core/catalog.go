package core

import (
	"github.com/arthur-debert/cellar/pkg/config"
	"github.com/arthur-debert/cellar/pkg/formulafile"
	"github.com/arthur-debert/cellar/pkg/formulas"
	"github.com/arthur-debert/cellar/pkg/registry"
)

// LoadCatalog loads the bundled formulas plus every formula file found in
// cfg.FormulaPaths.
func LoadCatalog(cfg *config.Config) (*registry.Catalog, error) {
	sources := []registry.Source{formulas.Builtin()}
	if len(cfg.FormulaPaths) > 0 {
		sources = append(sources, formulafile.Dir(cfg.FormulaPaths...))
	}
	return registry.Load(sources...)
}
