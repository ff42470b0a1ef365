package testutil

import (
	"github.com/arthur-debert/cellar/pkg/types"
)

// FormulaBuilder builds formulas for tests.
type FormulaBuilder struct {
	f types.Formula
}

// NewFormula starts a formula at version 1.0 with a no-op procedure.
func NewFormula(name string) *FormulaBuilder {
	return &FormulaBuilder{f: types.Formula{
		Name:      name,
		Version:   "1.0",
		Source:    types.SourceSpec{URL: "https://example.com/" + name + "-1.0.tar.gz"},
		Procedure: types.ProcedureFuncs{},
	}}
}

// Version sets the version.
func (b *FormulaBuilder) Version(v string) *FormulaBuilder {
	b.f.Version = v
	return b
}

// Source sets the source URL and checksum.
func (b *FormulaBuilder) Source(url, checksum string) *FormulaBuilder {
	b.f.Source.URL = url
	b.f.Source.Checksum = checksum
	return b
}

// Depends adds runtime dependencies.
func (b *FormulaBuilder) Depends(names ...string) *FormulaBuilder {
	for _, n := range names {
		b.f.Dependencies = append(b.f.Dependencies, types.Dependency{Name: n})
	}
	return b
}

// BuildDepends adds build dependencies.
func (b *FormulaBuilder) BuildDepends(names ...string) *FormulaBuilder {
	for _, n := range names {
		b.f.Dependencies = append(b.f.Dependencies, types.Dependency{Name: n, Kind: types.Build})
	}
	return b
}

// Conflicts adds a conflict.
func (b *FormulaBuilder) Conflicts(name, reason string) *FormulaBuilder {
	b.f.Conflicts = append(b.f.Conflicts, types.Conflict{Name: name, Reason: reason})
	return b
}

// Option adds an option.
func (b *FormulaBuilder) Option(name string, def bool) *FormulaBuilder {
	b.f.Options = append(b.f.Options, types.Option{Name: name, Default: def})
	return b
}

// Patch adds a patch.
func (b *FormulaBuilder) Patch(source, checksum string) *FormulaBuilder {
	b.f.Patches = append(b.f.Patches, types.Patch{Source: source, Checksum: checksum})
	return b
}

// Service sets the service descriptor.
func (b *FormulaBuilder) Service(desc types.ServiceDescriptor) *FormulaBuilder {
	b.f.Service = &desc
	return b
}

// Procedure sets the install procedure.
func (b *FormulaBuilder) Procedure(p types.Procedure) *FormulaBuilder {
	b.f.Procedure = p
	return b
}

// Build returns the formula.
func (b *FormulaBuilder) Build() *types.Formula {
	f := b.f
	return &f
}
