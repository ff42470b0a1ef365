package options

import "github.com/arthur-debert/cellar/pkg/types"

// Args accumulates build tool arguments gated on option values.
type Args struct {
	cfg  types.BuildConfig
	args []string
}

// NewArgs starts an argument list with base.
func NewArgs(cfg types.BuildConfig, base ...string) *Args {
	return &Args{cfg: cfg, args: append([]string(nil), base...)}
}

// Add appends args unconditionally.
func (a *Args) Add(args ...string) *Args {
	a.args = append(a.args, args...)
	return a
}

// AddIf appends args when option is active.
func (a *Args) AddIf(option string, args ...string) *Args {
	if a.cfg.Enabled(option) {
		a.args = append(a.args, args...)
	}
	return a
}

// AddUnless appends args when option is not active.
func (a *Args) AddUnless(option string, args ...string) *Args {
	if !a.cfg.Enabled(option) {
		a.args = append(a.args, args...)
	}
	return a
}

// Choose appends ifArgs or elseArgs depending on option.
func (a *Args) Choose(option string, ifArgs, elseArgs []string) *Args {
	if a.cfg.Enabled(option) {
		return a.Add(ifArgs...)
	}
	return a.Add(elseArgs...)
}

// Strings returns a copy of the accumulated arguments.
func (a *Args) Strings() []string {
	return append([]string(nil), a.args...)
}
