package types

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/paths"
)

// DependencyKind says when a dependency is needed.
type DependencyKind int

const (
	// Runtime dependencies must stay installed for the dependent to work.
	Runtime DependencyKind = iota
	// Build dependencies are only needed while the dependent is built.
	Build
)

func (k DependencyKind) String() string {
	switch k {
	case Build:
		return "build"
	default:
		return "runtime"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k DependencyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DependencyKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "runtime":
		*k = Runtime
	case "build":
		*k = Build
	default:
		return fmt.Errorf("unknown dependency kind %q", text)
	}
	return nil
}

// Dependency declares that a formula requires another formula.
type Dependency struct {
	Name     string         `toml:"name" yaml:"name"`
	Kind     DependencyKind `toml:"kind" yaml:"kind"`
	Optional bool           `toml:"optional" yaml:"optional"`
}

func (d Dependency) String() string {
	s := d.Name
	if d.Kind == Build {
		s += " (build)"
	}
	if d.Optional {
		s += " (optional)"
	}
	return s
}

// Conflict declares that a formula cannot be installed alongside another.
type Conflict struct {
	Name   string `toml:"name" yaml:"name"`
	Reason string `toml:"reason" yaml:"reason"`
}

// Option is a user toggleable build switch.
type Option struct {
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description" yaml:"description"`
	Default     bool   `toml:"default" yaml:"default"`
}

// OptionGroup lists options of which exactly one is active.
type OptionGroup struct {
	Name    string   `toml:"name" yaml:"name"`
	Members []string `toml:"members" yaml:"members"`
	// Default is the member chosen when none is requested. Optional.
	Default string `toml:"default" yaml:"default"`
}

// SourceSpec locates a formula's source archive.
type SourceSpec struct {
	URL string `toml:"url" yaml:"url"`
	// Checksum is a digest string such as "sha256:<hex>".
	Checksum string `toml:"checksum" yaml:"checksum"`
	// Version overrides the formula version for archive naming.
	Version string `toml:"version" yaml:"version"`
	// Strategy names the download strategy. Empty selects the default.
	Strategy string `toml:"strategy" yaml:"strategy"`
}

// Patch is a source patch applied before configuring.
type Patch struct {
	// Source is a URL or a local path.
	Source   string `toml:"source" yaml:"source"`
	Checksum string `toml:"checksum" yaml:"checksum"`
	// Strip is the -p level passed to patch. Defaults to 1.
	Strip *int `toml:"strip" yaml:"strip"`
}

// StripLevel returns the effective -p level.
func (p Patch) StripLevel() int {
	if p.Strip == nil {
		return 1
	}
	return *p.Strip
}

// ServiceDescriptor describes a long running process for a service
// supervisor. Strings may reference ${opt_prefix}, ${var} and the other
// keg variables.
type ServiceDescriptor struct {
	Label            string   `toml:"label" yaml:"label"`
	Program          []string `toml:"program" yaml:"program"`
	KeepAlive        bool     `toml:"keep_alive" yaml:"keep_alive"`
	RunAtLoad        bool     `toml:"run_at_load" yaml:"run_at_load"`
	WorkingDirectory string   `toml:"working_directory" yaml:"working_directory"`
	// ManualCommand is how to start the service without a supervisor.
	ManualCommand string `toml:"manual_command" yaml:"manual_command"`
}

// Identity names one formula version.
type Identity struct {
	Name    string
	Version string
}

func (i Identity) String() string {
	return i.Name + "@" + i.Version
}

// Formula is a recipe for one software package. It is immutable once
// loaded into a registry.
type Formula struct {
	Name     string
	Version  string
	Homepage string
	Head     string

	Source       SourceSpec
	Options      []Option
	OptionGroups []OptionGroup
	Dependencies []Dependency
	Conflicts    []Conflict
	Patches      []Patch

	Caveats     string
	// CaveatsFunc, when set, renders the caveats for the install running
	// in env and replaces Caveats in that install's receipt.
	CaveatsFunc func(env BuildEnv) string
	Service     *ServiceDescriptor

	Procedure Procedure
}

// Identity returns the formula's name and version.
func (f *Formula) Identity() Identity {
	return Identity{Name: f.Name, Version: f.Version}
}

// SourceVersion is the version used for the source archive.
func (f *Formula) SourceVersion() string {
	if f.Source.Version != "" {
		return f.Source.Version
	}
	return f.Version
}

// HasOption reports whether name is a declared option or group member.
func (f *Formula) HasOption(name string) bool {
	for _, o := range f.Options {
		if o.Name == name {
			return true
		}
	}
	return false
}

// Validate checks the declarations are internally consistent.
func (f *Formula) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Newf(errors.ErrInvalidInput, "formula %q: %s", f.Name, fmt.Sprintf(format, args...)).
			WithDetail(errors.DetailFormula, f.Name)
	}

	if f.Name == "" {
		return errors.New(errors.ErrInvalidInput, "formula has no name")
	}
	if err := paths.ValidateComponent("formula name", f.Name); err != nil {
		return err
	}
	if f.Version == "" {
		return invalid("missing version")
	}
	if err := paths.ValidateComponent("version", f.Version); err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "formula %q", f.Name).
			WithDetail(errors.DetailFormula, f.Name)
	}
	if f.Source.URL == "" {
		return invalid("missing source url")
	}
	if f.Procedure == nil {
		return invalid("missing install procedure")
	}

	seen := make(map[string]bool, len(f.Options))
	for _, o := range f.Options {
		if o.Name == "" {
			return invalid("option with empty name")
		}
		if seen[o.Name] {
			return invalid("duplicate option %q", o.Name)
		}
		seen[o.Name] = true
	}

	grouped := make(map[string]string)
	for _, g := range f.OptionGroups {
		if len(g.Members) < 2 {
			return invalid("option group %q needs at least two members", g.Name)
		}
		for _, m := range g.Members {
			if !seen[m] {
				return invalid("option group %q references undeclared option %q", g.Name, m)
			}
			if other, ok := grouped[m]; ok {
				return invalid("option %q is in groups %q and %q", m, other, g.Name)
			}
			grouped[m] = g.Name
		}
		if g.Default != "" && grouped[g.Default] != g.Name {
			return invalid("option group %q default %q is not a member", g.Name, g.Default)
		}
	}

	deps := make(map[string]bool, len(f.Dependencies))
	for _, d := range f.Dependencies {
		if d.Name == f.Name {
			return invalid("depends on itself")
		}
		if deps[d.Name] {
			return invalid("duplicate dependency %q", d.Name)
		}
		deps[d.Name] = true
	}
	for _, c := range f.Conflicts {
		if c.Name == f.Name {
			return invalid("conflicts with itself")
		}
		if deps[c.Name] {
			return invalid("both depends on and conflicts with %q", c.Name)
		}
	}
	for _, p := range f.Patches {
		if p.Source == "" {
			return invalid("patch with empty source")
		}
		if p.StripLevel() < 0 {
			return invalid("patch %s has negative strip level", p.Source)
		}
	}
	return nil
}
