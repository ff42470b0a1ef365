package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// optionFlag collects build options on commands that resolve formulas.
const optionFlag = "option"

// rewriteOptionArgs lets build options be written as plain flags after the
// formula names: "--with-x" becomes "--option=with-x". Flags the selected
// command knows are left alone, as is everything after "--".
func rewriteOptionArgs(root *cobra.Command, args []string) []string {
	cmd, _, err := root.Find(args)
	if err != nil || cmd.Flags().Lookup(optionFlag) == nil {
		return args
	}

	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name, ok := strings.CutPrefix(arg, "--")
		if !ok || name == "" {
			out = append(out, arg)
			continue
		}
		flagName, _, _ := strings.Cut(name, "=")
		if flagName == "help" || cmd.Flags().Lookup(flagName) != nil || cmd.InheritedFlags().Lookup(flagName) != nil {
			out = append(out, arg)
			continue
		}
		out = append(out, "--"+optionFlag+"="+name)
	}
	return out
}
