package main

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Build and install software from formulas"
	MsgInstallShort    = "Install formulas and their dependencies"
	MsgUninstallShort  = "Remove installed formulas"
	MsgDepsShort       = "Show the dependencies of formulas"
	MsgListShort       = "List installed formulas"
	MsgListLong        = "List displays the formulas installed under the prefix, or with --available every formula cellar knows about."
	MsgInfoShort       = "Show details about a formula"
	MsgInfoLong        = "Info describes a formula: its source, dependencies, options, service and caveats, and whether it is installed. Use NAME@VERSION to pick a specific version."
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgGenConfigShort  = "Print or write a commented default configuration"
	MsgGenConfigLong   = "Gen-config prints the default configuration with every value commented out. With --write it is written to the file named by --config, CELLAR_CONFIG or $XDG_CONFIG_HOME/cellar/config.toml."
	MsgShellenvShort   = "Print shell code that adds the prefix to your search paths"
	MsgShellenvLong    = "Shellenv prints exports for PATH, MANPATH and INFOPATH pointing into the prefix. Add 'eval \"$(cellar shellenv)\"' to your shell profile. The shell defaults to $SHELL."

	// Status messages
	MsgDryRunNotice        = "DRY RUN MODE - nothing was installed"
	MsgUninstalledFormat   = "Uninstalled %s %s (%d files)\n"
	MsgProgressFormat      = "==> %s: %s\n"
	MsgVersionFormat       = "cellar version %s\n"
	MsgVersionCommit       = "  commit: %s\n"
	MsgVersionDate         = "  built:  %s\n"
	MsgConfigWrittenFormat = "Wrote %s\n"
	MsgNoFormulasKnown     = "No formulas available"
	MsgAvailableFormulas   = "Available formulas:"
	MsgAvailableFormulaFm  = "  %s %s\n"

	// Flag descriptions
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig    = "Config file (default is $XDG_CONFIG_HOME/cellar/config.toml)"
	MsgFlagPrefix    = "Install prefix, overriding the configured one"
	MsgFlagFormat    = "Output format: auto, term or text"
	MsgFlagDryRun    = "Resolve and print the install plan without installing"
	MsgFlagOption    = "Build option for the requested formulas (repeatable)"
	MsgFlagForce     = "Remove formulas even if other installed formulas need them"
	MsgFlagTree      = "Print dependencies as a tree"
	MsgFlagAll       = "Include failed and in-progress installs"
	MsgFlagWrite     = "Write the configuration file instead of printing it"
	MsgFlagOverwrite = "Overwrite an existing configuration file"
	MsgFlagAvailable = "List every known formula instead of installed ones"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/install-long.txt
	msgInstallLongRaw string
	MsgInstallLong    = strings.TrimSpace(msgInstallLongRaw)

	//go:embed msgs/install-example.txt
	msgInstallExampleRaw string
	MsgInstallExample    = strings.TrimRight(msgInstallExampleRaw, "\n")

	//go:embed msgs/uninstall-long.txt
	msgUninstallLongRaw string
	MsgUninstallLong    = strings.TrimSpace(msgUninstallLongRaw)

	//go:embed msgs/deps-long.txt
	msgDepsLongRaw string
	MsgDepsLong    = strings.TrimSpace(msgDepsLongRaw)

	//go:embed msgs/deps-example.txt
	msgDepsExampleRaw string
	MsgDepsExample    = strings.TrimRight(msgDepsExampleRaw, "\n")

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
