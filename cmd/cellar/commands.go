package main

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/cellar/internal/version"
	"github.com/arthur-debert/cellar/pkg/config"
	"github.com/arthur-debert/cellar/pkg/core"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/options"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/shell"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newInstallCmd(s *settings) *cobra.Command {
	var (
		dryRun bool
		raw    []string
	)
	cmd := &cobra.Command{
		Use:               "install <formula...> [--with-x ...]",
		Short:             MsgInstallShort,
		Long:              MsgInstallLong,
		Example:           MsgInstallExample,
		GroupID:           "core",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: formulaNamesCompletion(s),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options.Parse(raw)
			if err != nil {
				return err
			}
			req := core.Request{Formulas: args, Options: opts}

			log.Info().
				Strs("formulas", args).
				Strs("options", raw).
				Bool("dry_run", dryRun).
				Msg("Installing formulas")

			if dryRun {
				engine, _, err := s.newEngine(nil)
				if err != nil {
					return err
				}
				res, err := engine.Plan(req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.renderer().RenderPlan(res.Plan, res.Installed))
				fmt.Fprintln(cmd.OutOrStdout(), "\n"+MsgDryRunNotice)
				return nil
			}

			engine, cfg, err := s.newEngine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := engine.Install(cmd.Context(), req)
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), s.renderer().RenderReport(report, paths.NewPrefix(cfg.Prefix)))
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, MsgFlagDryRun)
	cmd.Flags().StringArrayVarP(&raw, optionFlag, "o", nil, MsgFlagOption)
	return cmd
}

func newUninstallCmd(s *settings) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:               "uninstall <formula...>",
		Aliases:           []string{"remove", "rm"},
		Short:             MsgUninstallShort,
		Long:              MsgUninstallLong,
		GroupID:           "core",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: formulaNamesCompletion(s),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := s.newEngine(nil)
			if err != nil {
				return err
			}
			removed, err := engine.Uninstall(cmd.Context(), core.UninstallRequest{Formulas: args, Force: force})
			for _, m := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), MsgUninstalledFormat, m.Formula, m.Version, len(m.Entries))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, MsgFlagForce)
	return cmd
}

func newDepsCmd(s *settings) *cobra.Command {
	var (
		tree bool
		raw  []string
	)
	cmd := &cobra.Command{
		Use:               "deps <formula...>",
		Short:             MsgDepsShort,
		Long:              MsgDepsLong,
		Example:           MsgDepsExample,
		GroupID:           "core",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: formulaNamesCompletion(s),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options.Parse(raw)
			if err != nil {
				return err
			}
			engine, _, err := s.newEngine(nil)
			if err != nil {
				return err
			}
			res, err := engine.Plan(core.Request{Formulas: args, Options: opts})
			if err != nil {
				return err
			}
			if tree {
				fmt.Fprint(cmd.OutOrStdout(), res.Graph.Tree())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.renderer().RenderPlan(res.Plan, res.Installed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, MsgFlagTree)
	cmd.Flags().StringArrayVarP(&raw, optionFlag, "o", nil, MsgFlagOption)
	return cmd
}

func newListCmd(s *settings) *cobra.Command {
	var all, available bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   MsgListShort,
		Long:    MsgListLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := s.newEngine(nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if available {
				if engine.Catalog().Len() == 0 {
					fmt.Fprintln(out, MsgNoFormulasKnown)
					return nil
				}
				fmt.Fprintln(out, MsgAvailableFormulas)
				for id := range engine.Catalog().List() {
					fmt.Fprintf(out, MsgAvailableFormulaFm, id.Name, id.Version)
				}
				return nil
			}

			var receipts []*types.InstallManifest
			if all {
				receipts, err = engine.Receipts().List()
			} else {
				receipts, err = engine.Installed()
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s.renderer().RenderReceipts(receipts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, MsgFlagAll)
	cmd.Flags().BoolVar(&available, "available", false, MsgFlagAvailable)
	cmd.MarkFlagsMutuallyExclusive("all", "available")
	return cmd
}

func newInfoCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:               "info <formula[@version]>",
		Short:             MsgInfoShort,
		Long:              MsgInfoLong,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: formulaNamesCompletion(s),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := s.newEngine(nil)
			if err != nil {
				return err
			}
			f, err := engine.Lookup(args[0])
			if err != nil {
				return err
			}

			receipt, err := engine.Receipts().Load(f.Name)
			switch {
			case errors.IsErrorCode(err, errors.ErrNotFound):
				receipt = nil
			case err != nil:
				return err
			case receipt.Version != f.Version || receipt.CurrentState() != types.StateInstalled:
				receipt = nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), s.renderer().RenderFormula(f, paths.NewPrefix(cfg.Prefix), receipt))
			return nil
		},
	}
}

func newShellenvCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:       "shellenv [bash|zsh|sh|fish]",
		Short:     MsgShellenvShort,
		Long:      MsgShellenvLong,
		GroupID:   "misc",
		ValidArgs: shell.Supported,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := s.loadConfig()
			if err != nil {
				return err
			}
			name := shell.Detect()
			if len(args) == 1 {
				name = args[0]
			}
			snippet, err := shell.Snippet(name, paths.NewPrefix(cfg.Prefix))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), snippet)
			return nil
		},
	}
}

func newGenConfigCmd(s *settings) *cobra.Command {
	var write, force bool
	cmd := &cobra.Command{
		Use:     "gen-config",
		Short:   MsgGenConfigShort,
		Long:    MsgGenConfigLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !write {
				fmt.Fprint(cmd.OutOrStdout(), config.GenerateConfigContent())
				return nil
			}
			path, err := config.WriteUserConfig(s.configFile, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgConfigWrittenFormat, path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, MsgFlagWrite)
	cmd.Flags().BoolVar(&force, "force", false, MsgFlagOverwrite)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, MsgVersionFormat, version.Version)
			fmt.Fprintf(out, MsgVersionCommit, version.Commit)
			fmt.Fprintf(out, MsgVersionDate, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch strings.ToLower(args[0]) {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
