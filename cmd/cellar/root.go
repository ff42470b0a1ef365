package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/arthur-debert/cellar/internal/version"
	"github.com/arthur-debert/cellar/pkg/config"
	"github.com/arthur-debert/cellar/pkg/core"
	"github.com/arthur-debert/cellar/pkg/install"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/arthur-debert/cellar/pkg/style"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// settings holds the global flags shared by every command.
type settings struct {
	verbosity  int
	configFile string
	prefix     string
	format     string

	resolved style.Format
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	s := &settings{}

	rootCmd := &cobra.Command{
		Use:     "cellar",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(s.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")

			f, err := style.ParseFormat(s.format)
			if err != nil {
				return err
			}
			s.resolved = f.Resolve(stdoutFile(cmd))
			style.Apply(s.resolved)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&s.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&s.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVar(&s.prefix, "prefix", "", MsgFlagPrefix)
	rootCmd.PersistentFlags().StringVar(&s.format, "format", "auto", MsgFlagFormat)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newInstallCmd(s))
	rootCmd.AddCommand(newUninstallCmd(s))
	rootCmd.AddCommand(newDepsCmd(s))
	rootCmd.AddCommand(newListCmd(s))
	rootCmd.AddCommand(newInfoCmd(s))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newShellenvCmd(s))
	rootCmd.AddCommand(newGenConfigCmd(s))
	rootCmd.AddCommand(newCompletionCmd())

	if err := initTopics(rootCmd, s); err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}

	return rootCmd
}

// loadConfig reads the configuration, applying --config and --prefix.
func (s *settings) loadConfig() (*config.Config, error) {
	opts := config.LoadOptions{File: s.configFile}
	if s.prefix != "" {
		opts.Overrides = map[string]interface{}{"prefix": s.prefix}
	}
	return config.Load(opts)
}

// newEngine loads the configuration and creates an engine. Progress lines
// are written to progress when it is non-nil.
func (s *settings) newEngine(progress io.Writer) (*core.Engine, *config.Config, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := core.Options{Config: cfg}
	if progress != nil {
		opts.OnTransition = progressPrinter(progress)
	}
	engine, err := core.New(opts)
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

func (s *settings) renderer() *style.Renderer {
	width := 0
	if s.resolved == style.FormatTerminal {
		width = pterm.GetTerminalWidth()
	}
	return style.NewRenderer(s.resolved, width)
}

// stdoutFile returns the command's output when it is a file, so format
// detection can inspect it. Other writers yield nil, which is never a
// terminal.
func stdoutFile(cmd *cobra.Command) *os.File {
	f, _ := cmd.OutOrStdout().(*os.File)
	return f
}

// progressPrinter reports every non-terminal state change of an install.
// Concurrent installs share w.
func progressPrinter(w io.Writer) install.TransitionFunc {
	var mu sync.Mutex
	return func(formula string, _, to types.InstallState) {
		if to.Terminal() || to == types.StatePending {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, MsgProgressFormat,
			style.Render("[formula]"+formula+"[/formula]"), strings.ToLower(to.String()))
	}
}

// formulaNamesCompletion completes formula names not already on the line.
func formulaNamesCompletion(s *settings) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := s.loadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		catalog, err := core.LoadCatalog(cfg)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		seen := make(map[string]bool, len(args))
		for _, a := range args {
			seen[a] = true
		}
		var names []string
		for _, name := range catalog.Names() {
			if !seen[name] && strings.HasPrefix(name, toComplete) {
				names = append(names, name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}
