package types

import (
	"fmt"
	"sort"

	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/mitchellh/copystructure"
)

// Selection is a validated set of option values for one formula. The zero
// value has every option off.
type Selection struct {
	values map[string]bool
}

// NewSelection copies values into a Selection.
func NewSelection(values map[string]bool) Selection {
	s := Selection{values: make(map[string]bool, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Enabled reports whether the option is active.
func (s Selection) Enabled(name string) bool {
	return s.values[name]
}

// Active returns the active option names, sorted.
func (s Selection) Active() []string {
	out := make([]string, 0, len(s.values))
	for k, v := range s.values {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Values returns a copy of every resolved option value.
func (s Selection) Values() map[string]bool {
	out := make(map[string]bool, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// BuildConfig is everything an install procedure may branch on. It is
// built once per install and never mutated; variants are new values.
type BuildConfig struct {
	Options Selection
	Keg     paths.Keg
	Archs   []string
	// Jobs is the parallelism handed to build tools.
	Jobs int
	// Env is added to the environment of every build tool.
	Env map[string]string
}

// Enabled is shorthand for Options.Enabled.
func (c BuildConfig) Enabled(option string) bool {
	return c.Options.Enabled(option)
}

// Universal reports whether the build targets more than one architecture.
func (c BuildConfig) Universal() bool {
	return len(c.Archs) > 1
}

// JobsFlag renders Jobs as a make style -j flag.
func (c BuildConfig) JobsFlag() string {
	if c.Jobs < 1 {
		return "-j1"
	}
	return fmt.Sprintf("-j%d", c.Jobs)
}

// WithArchs returns a copy targeting archs.
func (c BuildConfig) WithArchs(archs ...string) BuildConfig {
	out := c.clone()
	out.Archs = append([]string(nil), archs...)
	return out
}

// WithEnv returns a copy with key set in the build environment.
func (c BuildConfig) WithEnv(key, value string) BuildConfig {
	out := c.clone()
	if out.Env == nil {
		out.Env = make(map[string]string)
	}
	out.Env[key] = value
	return out
}

func (c BuildConfig) clone() BuildConfig {
	out := c
	if c.Env != nil {
		env, err := copystructure.Copy(c.Env)
		if err != nil {
			panic(fmt.Sprintf("copy build env: %v", err))
		}
		out.Env = env.(map[string]string)
	}
	out.Archs = append([]string(nil), c.Archs...)
	return out
}
