package formulafile

import (
	"context"
	"strconv"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/options"
	"github.com/arthur-debert/cellar/pkg/service"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/mattn/go-shellwords"
)

// commandProcedure runs the command lines of an [install] section.
type commandProcedure struct {
	section installSection
}

func (p *commandProcedure) Configure(ctx context.Context, env types.BuildEnv) error {
	return p.run(ctx, env, p.section.Configure, true)
}

func (p *commandProcedure) Build(ctx context.Context, env types.BuildEnv) error {
	return p.run(ctx, env, p.section.Build, false)
}

func (p *commandProcedure) Install(ctx context.Context, env types.BuildEnv) error {
	return p.run(ctx, env, p.section.Install, false)
}

func (p *commandProcedure) run(ctx context.Context, env types.BuildEnv, lines []string, configure bool) error {
	vars := variables(env.Config())
	for i, line := range lines {
		words, err := Command(line, vars)
		if err != nil {
			return err
		}
		if configure && i == 0 {
			words = append(words, p.gatedArgs(env.Config(), vars)...)
		}
		if err := env.Run(ctx, words[0], words[1:]...); err != nil {
			return err
		}
	}
	return nil
}

func (p *commandProcedure) gatedArgs(cfg types.BuildConfig, vars map[string]string) []string {
	args := options.NewArgs(cfg)
	for _, a := range p.section.Args {
		if (a.When == "" || cfg.Enabled(a.When)) && (a.Unless == "" || !cfg.Enabled(a.Unless)) {
			args.Add(service.Expand(a.Flag, vars))
		}
	}
	return args.Strings()
}

func variables(cfg types.BuildConfig) map[string]string {
	vars := cfg.Keg.Vars()
	vars["jobs"] = cfg.JobsFlag()
	vars["make_jobs"] = strconv.Itoa(cfg.Jobs)
	return vars
}

// Command splits line into words and expands ${var} references in each.
func Command(line string, vars map[string]string) ([]string, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot parse command %q", line)
	}
	if len(words) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "empty install command")
	}
	for i, w := range words {
		words[i] = service.Expand(w, vars)
	}
	return words, nil
}
