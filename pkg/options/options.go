// Package options validates user requested build options against a
// formula's declared option schema.
package options

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/registry"
	"github.com/arthur-debert/cellar/pkg/types"
)

// Universal is the composite option that builds for every configured
// architecture at once.
const Universal = "universal"

// Request is one user supplied option value.
type Request struct {
	Name  string
	Value bool
}

func (r Request) String() string {
	return fmt.Sprintf("%s=%t", r.Name, r.Value)
}

// Parse turns raw option words into requests. Accepted forms are "name",
// "--name", "name=true|false" and "--without-x", which means with-x=false.
func Parse(raw []string) ([]Request, error) {
	out := make([]Request, 0, len(raw))
	for _, word := range raw {
		s := strings.TrimLeft(strings.TrimSpace(word), "-")
		if s == "" {
			return nil, errors.Newf(errors.ErrInvalidInput, "empty option %q", word)
		}

		name, value, hasValue := strings.Cut(s, "=")
		req := Request{Name: name, Value: true}
		if hasValue {
			v, err := strconv.ParseBool(value)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrInvalidInput, "option %q: value must be true or false", name)
			}
			req.Value = v
		}
		if rest, ok := strings.CutPrefix(req.Name, "without-"); ok {
			req.Name = "with-" + rest
			req.Value = !req.Value
		}
		if req.Name == "" {
			return nil, errors.Newf(errors.ErrInvalidInput, "empty option %q", word)
		}
		out = append(out, req)
	}
	return out, nil
}

// Resolve validates reqs against f's options and returns the full
// selection, with every declared option set. Later requests for the same
// option override earlier ones.
func Resolve(f *types.Formula, reqs []Request) (types.Selection, error) {
	explicit := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		if !f.HasOption(r.Name) {
			return types.Selection{}, unknownOption(f, r.Name)
		}
		explicit[r.Name] = r.Value
	}

	values := make(map[string]bool, len(f.Options))
	for _, o := range f.Options {
		if v, ok := explicit[o.Name]; ok {
			values[o.Name] = v
		} else {
			values[o.Name] = o.Default
		}
	}

	for _, g := range f.OptionGroups {
		active, err := resolveGroup(f, g, explicit)
		if err != nil {
			return types.Selection{}, err
		}
		for _, m := range g.Members {
			values[m] = m == active
		}
	}

	return types.NewSelection(values), nil
}

// resolveGroup picks the single active member of an exclusive group. An
// explicit request wins. Otherwise the group default, then the first
// member whose own default is on, then the first member not explicitly
// turned off.
func resolveGroup(f *types.Formula, g types.OptionGroup, explicit map[string]bool) (string, error) {
	var requested []string
	for _, m := range g.Members {
		if explicit[m] {
			requested = append(requested, m)
		}
	}
	switch len(requested) {
	case 0:
	case 1:
		return requested[0], nil
	default:
		return "", errors.Newf(errors.ErrOptionConflict,
			"options %s are mutually exclusive for %s", strings.Join(requested, " and "), f.Name).
			WithDetail(errors.DetailFormula, f.Name).
			WithDetail("group", g.Name)
	}

	allowed := func(m string) bool {
		v, ok := explicit[m]
		return !ok || v
	}

	if g.Default != "" && allowed(g.Default) {
		return g.Default, nil
	}
	for _, m := range g.Members {
		if optionDefault(f, m) && allowed(m) {
			return m, nil
		}
	}
	for _, m := range g.Members {
		if allowed(m) {
			return m, nil
		}
	}
	return "", errors.Newf(errors.ErrOptionConflict,
		"one of %s must be enabled for %s", strings.Join(g.Members, ", "), f.Name).
		WithDetail(errors.DetailFormula, f.Name).
		WithDetail("group", g.Name)
}

func optionDefault(f *types.Formula, name string) bool {
	for _, o := range f.Options {
		if o.Name == name {
			return o.Default
		}
	}
	return false
}

func unknownOption(f *types.Formula, name string) error {
	declared := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		declared = append(declared, o.Name)
	}
	err := errors.Newf(errors.ErrUnknownOption, "%s has no option %q", f.Name, name).
		WithDetail(errors.DetailFormula, f.Name).
		WithDetail("option", name)
	if s, ok := registry.Suggest(name, declared); ok {
		err.WithDetail("suggestion", s)
	}
	return err
}

// Apply folds composite options into cfg. With universal active the
// build targets universalArchs.
func Apply(cfg types.BuildConfig, universalArchs []string) types.BuildConfig {
	if cfg.Enabled(Universal) && len(universalArchs) > 0 {
		return cfg.WithArchs(universalArchs...)
	}
	return cfg
}
