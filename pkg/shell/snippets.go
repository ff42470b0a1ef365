// Package shell renders the snippet that puts a prefix on a shell's search
// paths, for "eval $(cellar shellenv)".
package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/paths"
)

// Supported lists the shells Snippet knows.
var Supported = []string{"bash", "zsh", "sh", "fish"}

// Detect returns the user's login shell from $SHELL, defaulting to sh.
func Detect() string {
	name := filepath.Base(os.Getenv("SHELL"))
	for _, s := range Supported {
		if s == name {
			return s
		}
	}
	return "sh"
}

// Snippet returns shell code exporting the prefix and prepending its bin,
// sbin, man and info directories to the search paths.
func Snippet(shell string, prefix paths.Prefix) (string, error) {
	root := prefix.Root
	bin, sbin := prefix.Bin(), prefix.Sbin()
	man := filepath.Join(prefix.Share(), "man")
	info := filepath.Join(prefix.Share(), "info")

	var b strings.Builder
	switch shell {
	case "bash", "zsh", "sh":
		fmt.Fprintf(&b, "export CELLAR_PREFIX=%s;\n", quote(root))
		fmt.Fprintf(&b, "export PATH=%s:%s\"${PATH+:$PATH}\";\n", quote(bin), quote(sbin))
		fmt.Fprintf(&b, "export MANPATH=%s\"${MANPATH+:$MANPATH}\":;\n", quote(man))
		fmt.Fprintf(&b, "export INFOPATH=%s:\"${INFOPATH:-}\";\n", quote(info))
	case "fish":
		fmt.Fprintf(&b, "set -gx CELLAR_PREFIX %s;\n", quote(root))
		fmt.Fprintf(&b, "fish_add_path -gP %s %s;\n", quote(bin), quote(sbin))
		fmt.Fprintf(&b, "! set -q MANPATH; and set MANPATH '';\n")
		fmt.Fprintf(&b, "set -gx MANPATH %s $MANPATH;\n", quote(man))
		fmt.Fprintf(&b, "! set -q INFOPATH; and set INFOPATH '';\n")
		fmt.Fprintf(&b, "set -gx INFOPATH %s $INFOPATH;\n", quote(info))
	default:
		return "", errors.Newf(errors.ErrInvalidInput, "unsupported shell %q", shell).
			WithDetail("supported", strings.Join(Supported, ", "))
	}
	return b.String(), nil
}

// quote single-quotes s for POSIX shells and fish.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
