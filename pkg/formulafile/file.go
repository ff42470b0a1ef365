package formulafile

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a formula file encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, true
	case ".yaml", ".yml":
		return YAML, true
	}
	return "", false
}

type formulaFile struct {
	Name         string                   `toml:"name" yaml:"name"`
	Version      string                   `toml:"version" yaml:"version"`
	Homepage     string                   `toml:"homepage" yaml:"homepage"`
	Head         string                   `toml:"head" yaml:"head"`
	Caveats      string                   `toml:"caveats" yaml:"caveats"`
	Source       types.SourceSpec         `toml:"source" yaml:"source"`
	Options      []types.Option           `toml:"options" yaml:"options"`
	OptionGroups []types.OptionGroup      `toml:"option_groups" yaml:"option_groups"`
	Dependencies []types.Dependency       `toml:"dependencies" yaml:"dependencies"`
	Conflicts    []types.Conflict         `toml:"conflicts" yaml:"conflicts"`
	Patches      []types.Patch            `toml:"patches" yaml:"patches"`
	Service      *types.ServiceDescriptor `toml:"service" yaml:"service"`
	Install      installSection           `toml:"install" yaml:"install"`
}

type installSection struct {
	Configure []string  `toml:"configure" yaml:"configure"`
	Build     []string  `toml:"build" yaml:"build"`
	Install   []string  `toml:"install" yaml:"install"`
	Args      []argSpec `toml:"args" yaml:"args"`
}

type argSpec struct {
	Flag   string `toml:"flag" yaml:"flag"`
	When   string `toml:"when" yaml:"when"`
	Unless string `toml:"unless" yaml:"unless"`
}

// Parse decodes one formula. name is used in error messages only.
// Unknown keys are rejected.
func Parse(name string, data []byte, format Format) (*types.Formula, error) {
	var ff formulaFile
	var err error
	switch format {
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&ff)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&ff)
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unsupported formula format %q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to parse formula file %s", name).
			WithDetail("file", name)
	}

	f := &types.Formula{
		Name:         ff.Name,
		Version:      ff.Version,
		Homepage:     ff.Homepage,
		Head:         ff.Head,
		Caveats:      ff.Caveats,
		Source:       ff.Source,
		Options:      ff.Options,
		OptionGroups: ff.OptionGroups,
		Dependencies: ff.Dependencies,
		Conflicts:    ff.Conflicts,
		Patches:      ff.Patches,
		Service:      ff.Service,
		Procedure:    &commandProcedure{section: ff.Install},
	}
	if err := validateArgs(f, ff.Install.Args); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "formula file %s", name).
			WithDetail("file", name)
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "formula file %s", name).
			WithDetail("file", name)
	}
	return f, nil
}

func validateArgs(f *types.Formula, args []argSpec) error {
	for _, a := range args {
		if a.Flag == "" {
			return errors.New(errors.ErrInvalidInput, "install arg without flag")
		}
		for _, opt := range []string{a.When, a.Unless} {
			if opt != "" && !f.HasOption(opt) {
				return errors.Newf(errors.ErrInvalidInput, "install arg %q references undeclared option %q", a.Flag, opt)
			}
		}
	}
	return nil
}
