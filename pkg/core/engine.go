package core

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/arthur-debert/cellar/pkg/config"
	"github.com/arthur-debert/cellar/pkg/deps"
	"github.com/arthur-debert/cellar/pkg/download"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/filesystem"
	"github.com/arthur-debert/cellar/pkg/install"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/arthur-debert/cellar/pkg/manifest"
	"github.com/arthur-debert/cellar/pkg/options"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/registry"
	"github.com/arthur-debert/cellar/pkg/runner"
	"github.com/arthur-debert/cellar/pkg/scheduler"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/rs/zerolog"
)

// Options configures an Engine. Only Config is required.
type Options struct {
	Config *config.Config
	// Catalog defaults to LoadCatalog(Config).
	Catalog *registry.Catalog
	Runner  runner.Runner
	Fetcher download.Fetcher
	// Strategies defaults to download.Defaults.
	Strategies   *download.Strategies
	OnTransition install.TransitionFunc
	Logger       *zerolog.Logger
	FS           types.FS
}

// Engine installs and removes formulas at one prefix.
type Engine struct {
	cfg        *config.Config
	catalog    *registry.Catalog
	strategies *download.Strategies
	orch       *install.Orchestrator
	sched      *scheduler.Scheduler
	logger     zerolog.Logger
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, errors.New(errors.ErrInvalidInput, "engine requires a configuration")
	}
	cfg := opts.Config
	logger := logging.OrDefault(opts.Logger, "core")

	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = LoadCatalog(cfg); err != nil {
			return nil, err
		}
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	r := opts.Runner
	if r == nil {
		r = runner.NewExec(runner.Options{Logger: &logger})
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = download.NewHTTPFetcher(download.FetcherOptions{
			Retries: cfg.Fetch.Retries,
			Timeout: cfg.Fetch.Timeout,
			Logger:  &logger,
		})
	}
	strategies := opts.Strategies
	if strategies == nil {
		strategies = download.Defaults(fetcher, r, &logger)
	}

	prefix := paths.NewPrefix(cfg.Prefix)
	orch := install.New(install.Options{
		Prefix:        prefix,
		WorkRoot:      cfg.CacheDir,
		Store:         manifest.NewStore(prefix, fsys, &logger),
		Runner:        r,
		Fetcher:       fetcher,
		BuildTimeout:  cfg.Build.Timeout,
		KeepDownloads: cfg.KeepDownloads,
		OnTransition:  opts.OnTransition,
		Logger:        &logger,
		FS:            fsys,
	})

	return &Engine{
		cfg:        cfg,
		catalog:    catalog,
		strategies: strategies,
		orch:       orch,
		sched:      scheduler.New(scheduler.Options{Concurrency: cfg.Concurrency, Logger: &logger}),
		logger:     logger,
	}, nil
}

// Catalog returns the formulas the engine knows about.
func (e *Engine) Catalog() *registry.Catalog {
	return e.catalog
}

// Receipts returns the receipt store of the prefix.
func (e *Engine) Receipts() *manifest.Store {
	return e.orch.Store()
}

// Request names formulas to install and the options requested for them.
type Request struct {
	Formulas []string
	Options  []options.Request
}

// Resolution is a resolved but not yet executed install.
type Resolution struct {
	Graph *deps.Graph
	Plan  *deps.Plan
	// Installed lists formulas with an Installed receipt at resolve time.
	Installed []string
}

// Plan resolves req without side effects. Options apply to the requested
// formulas; their dependencies use their defaults.
func (e *Engine) Plan(req Request) (*Resolution, error) {
	if len(req.Formulas) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "no formulas requested")
	}
	defer logging.LogOperationStart(e.logger, "resolve")()

	roots := make(map[string]bool, len(req.Formulas))
	for _, name := range req.Formulas {
		roots[name] = true
	}

	sel := func(f *types.Formula) (types.Selection, error) {
		if !roots[f.Name] {
			return options.Resolve(f, nil)
		}
		if len(roots) == 1 {
			return options.Resolve(f, req.Options)
		}
		return options.Resolve(f, declared(f, req.Options))
	}
	g, err := deps.Build(e.catalog, req.Formulas, sel)
	if err != nil {
		return nil, err
	}
	if err := e.checkRequestedOptions(g, req); err != nil {
		return nil, err
	}

	installed, err := e.Receipts().Installed()
	if err != nil {
		return nil, err
	}
	plan, err := g.Resolve(installed)
	if err != nil {
		return nil, err
	}
	return &Resolution{Graph: g, Plan: plan, Installed: installed}, nil
}

func declared(f *types.Formula, reqs []options.Request) []options.Request {
	var out []options.Request
	for _, r := range reqs {
		if f.HasOption(r.Name) {
			out = append(out, r)
		}
	}
	return out
}

// checkRequestedOptions rejects options no requested formula declares.
func (e *Engine) checkRequestedOptions(g *deps.Graph, req Request) error {
	for _, r := range req.Options {
		known := false
		for _, name := range g.Roots() {
			if f, ok := g.Formula(name); ok && f.HasOption(r.Name) {
				known = true
				break
			}
		}
		if !known {
			f, _ := g.Formula(g.Roots()[0])
			_, err := options.Resolve(f, []options.Request{r})
			return err
		}
	}
	return nil
}

// Install resolves req and installs the plan. The report is returned even
// when some formulas failed; the error then combines their errors.
// Resolution errors return no report.
func (e *Engine) Install(ctx context.Context, req Request) (*Report, error) {
	res, err := e.Plan(req)
	if err != nil {
		return nil, err
	}
	defer logging.LogOperationStart(e.logger, "install")()

	var (
		mu      sync.Mutex
		results = make(map[string]*install.Result, len(res.Plan.Steps))
	)
	sched := e.sched.Run(ctx, res.Plan, func(ctx context.Context, step deps.Step) error {
		r, err := e.installStep(ctx, step)
		mu.Lock()
		results[step.Name()] = r
		mu.Unlock()
		return err
	})

	report := newReport(res.Plan, sched, results)
	if e.cfg.PruneBuildDependencies && ctx.Err() == nil {
		e.prune(ctx, report)
	}
	e.logger.Info().
		Int("installed", len(report.Installed())).
		Int("failed", sched.Count(scheduler.Failed)).
		Int("skipped", sched.Count(scheduler.Skipped)).
		Msg("Install finished")
	return report, report.Err()
}

func (e *Engine) installStep(ctx context.Context, step deps.Step) (*install.Result, error) {
	f := step.Formula
	strategy, err := e.strategies.For(f.Source)
	if err != nil {
		var cerr *errors.CellarError
		if stderrors.As(err, &cerr) {
			cerr.ForFormula(f.Name, types.StateFetching.String())
		}
		return nil, err
	}

	cfg := options.Apply(types.BuildConfig{
		Options: step.Options,
		Archs:   e.cfg.Archs,
		Jobs:    e.cfg.MakeJobs,
	}, e.cfg.UniversalArchs)

	return e.orch.Install(ctx, install.Request{
		Formula:   f,
		Config:    cfg,
		Strategy:  strategy,
		BuildOnly: step.BuildOnly,
	})
}

// prune uninstalls build-only formulas this run installed once everything
// depending on them succeeded.
func (e *Engine) prune(ctx context.Context, report *Report) {
	for _, name := range report.Plan.BuildOnly() {
		s := report.step(name)
		if s.Outcome != scheduler.Succeeded || s.AlreadyInstalled {
			continue
		}
		ready := true
		for _, d := range report.Plan.Dependents(name) {
			if report.step(d).Outcome != scheduler.Succeeded {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if _, err := e.orch.Uninstall(ctx, name); err != nil {
			e.logger.Warn().Err(err).Str("formula", name).Msg("Could not prune build dependency")
			s.PruneErr = err
			continue
		}
		s.Pruned = true
	}
}
