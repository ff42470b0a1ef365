package install

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/arthur-debert/cellar/pkg/download"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/filesystem"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/arthur-debert/cellar/pkg/manifest"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/runner"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/rs/zerolog"
)

// TransitionFunc observes state changes.
type TransitionFunc func(formula string, from, to types.InstallState)

// Options configures an Orchestrator.
type Options struct {
	Prefix paths.Prefix
	// WorkRoot holds per-run download and build directories.
	WorkRoot string
	Store    *manifest.Store
	Runner   runner.Runner
	// Fetcher downloads remote patches.
	Fetcher download.Fetcher
	// BuildTimeout bounds each build tool invocation.
	BuildTimeout time.Duration
	// KeepDownloads retains the work directory after the install.
	KeepDownloads bool
	OnTransition  TransitionFunc
	Logger        *zerolog.Logger
	// Filesystem operations interface for testing
	FS types.FS
}

// Orchestrator installs formulas into a prefix.
type Orchestrator struct {
	prefix        paths.Prefix
	workRoot      string
	store         *manifest.Store
	runner        runner.Runner
	fetcher       download.Fetcher
	buildTimeout  time.Duration
	keepDownloads bool
	onTransition  TransitionFunc
	logger        zerolog.Logger
	fs            types.FS
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	logger := logging.OrDefault(opts.Logger, "install")

	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}
	store := opts.Store
	if store == nil {
		store = manifest.NewStore(opts.Prefix, fs, &logger)
	}
	r := opts.Runner
	if r == nil {
		r = runner.NewExec(runner.Options{Logger: &logger})
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = download.NewHTTPFetcher(download.FetcherOptions{Logger: &logger})
	}
	workRoot := opts.WorkRoot
	if workRoot == "" {
		workRoot = paths.CacheDir()
	}

	return &Orchestrator{
		prefix:        opts.Prefix,
		workRoot:      workRoot,
		store:         store,
		runner:        r,
		fetcher:       fetcher,
		buildTimeout:  opts.BuildTimeout,
		keepDownloads: opts.KeepDownloads,
		onTransition:  opts.OnTransition,
		logger:        logger,
		fs:            fs,
	}
}

// Store returns the receipt store the orchestrator writes to.
func (o *Orchestrator) Store() *manifest.Store {
	return o.store
}

// Request is one formula install.
type Request struct {
	Formula  *types.Formula
	Config   types.BuildConfig
	Strategy download.Strategy
	// BuildOnly marks the receipt of a formula installed only to build
	// another one.
	BuildOnly bool
}

// Result describes a finished install.
type Result struct {
	Formula          types.Identity
	Manifest         *types.InstallManifest
	AlreadyInstalled bool
	Download         *types.DownloadResult
	Duration         time.Duration
}

// Install runs req through the install state machine. On error the
// returned Result still carries the manifest of what was created before
// the failure.
func (o *Orchestrator) Install(ctx context.Context, req Request) (*Result, error) {
	f := req.Formula
	if req.Strategy == nil {
		return nil, errors.Newf(errors.ErrInternal, "no download strategy for %s", f.Name)
	}

	var (
		res *Result
		err error
	)
	lockErr := o.store.WithLock(ctx, f.Name, func() error {
		res, err = o.install(ctx, req)
		return nil
	})
	if lockErr != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), errors.ErrCanceled, "waiting for install lock of %s", f.Name).
				WithDetail(errors.DetailFormula, f.Name)
		}
		return nil, errors.Wrapf(lockErr, errors.ErrFilesystem, "locking %s", f.Name).
			WithDetail(errors.DetailFormula, f.Name)
	}
	return res, err
}

func (o *Orchestrator) install(ctx context.Context, req Request) (*Result, error) {
	f := req.Formula
	start := time.Now()
	logger := o.logger.With().Str("formula", f.Name).Str("version", f.Version).Logger()

	done, err := o.checkExisting(f, &logger)
	if done != nil || err != nil {
		return done, err
	}

	keg := o.prefix.Keg(f.Name, f.Version)
	cfg := req.Config
	cfg.Keg = keg

	m := types.NewManifest(f.Name, f.Version, o.prefix.Root, keg.Root)
	m.Options = cfg.Options.Active()
	m.BuildOnly = req.BuildOnly

	r := &run{
		o:       o,
		req:     req,
		cfg:     cfg,
		keg:     keg,
		m:       m,
		logger:  logger,
		state:   types.StatePending,
		workDir: download.NewWorkDir(o.workRoot, f.Name),
	}
	defer r.cleanup()

	result := &Result{Formula: f.Identity(), Manifest: m}
	if err := r.execute(ctx); err != nil {
		result.Download = r.download
		result.Duration = time.Since(start)
		return result, o.fail(ctx, r, err)
	}

	result.Download = r.download
	result.Duration = time.Since(start)
	logger.Info().Dur("duration", result.Duration).Int("entries", len(m.Snapshot())).Msg("Installed")
	return result, nil
}

// checkExisting handles an existing receipt. It returns a Result when the
// formula is already installed.
func (o *Orchestrator) checkExisting(f *types.Formula, logger *zerolog.Logger) (*Result, error) {
	existing, err := o.store.Load(f.Name)
	switch {
	case errors.IsErrorCode(err, errors.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	if existing.State == types.StateInstalled {
		if existing.Version == f.Version {
			logger.Info().Msg("Already installed")
			return &Result{Formula: f.Identity(), Manifest: existing, AlreadyInstalled: true}, nil
		}
		return nil, errors.Newf(errors.ErrAlreadyExists,
			"%s %s is installed; uninstall it before installing %s", f.Name, existing.Version, f.Version).
			WithDetail(errors.DetailFormula, f.Name).
			WithDetail("installed_version", existing.Version)
	}

	// A receipt in any other state is left over from an interrupted run.
	logger.Info().Str("state", existing.State.String()).Msg("Rolling back interrupted install")
	if err := manifest.Rollback(o.fs, existing, &o.logger); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "rolling back interrupted install of %s", f.Name).
			WithDetail(errors.DetailFormula, f.Name)
	}
	return nil, o.store.Delete(f.Name)
}

// fail finishes a run that returned err.
func (o *Orchestrator) fail(ctx context.Context, r *run, err error) error {
	phase := r.state
	r.transition(types.StateFailed)
	r.m.SetError(err)

	if ctx.Err() != nil {
		// Keep what was created so a retry or cleanup sees it.
		if saveErr := o.store.Save(r.m); saveErr != nil {
			r.logger.Error().Err(saveErr).Msg("Failed to persist manifest of canceled install")
		}
		r.logger.Warn().Str("phase", phase.String()).Msg("Install canceled")
		cerr := errors.Wrapf(err, errors.ErrCanceled, "install of %s canceled during %s", r.req.Formula.Name, phase)
		return cerr.ForFormula(r.req.Formula.Name, phase.String())
	}

	if rbErr := manifest.Rollback(o.fs, r.m, &o.logger); rbErr != nil {
		r.logger.Error().Err(rbErr).Msg("Rollback incomplete")
	}
	if delErr := o.store.Delete(r.req.Formula.Name); delErr != nil {
		r.logger.Error().Err(delErr).Msg("Failed to delete receipt")
	}

	tagged := tag(err, r.req.Formula.Name, phase)
	r.logger.Error().Err(tagged).Str("phase", phase.String()).Msg("Install failed")
	return tagged
}

// tag attaches formula and phase to err, classifying untyped errors by
// the phase they came from.
func tag(err error, formula string, phase types.InstallState) error {
	var cerr *errors.CellarError
	if !stderrors.As(err, &cerr) {
		code := errors.ErrBuild
		switch phase {
		case types.StateFetching:
			code = errors.ErrFetch
		case types.StatePatching:
			code = errors.ErrPatch
		case types.StateFinalizing:
			code = errors.ErrFilesystem
		}
		cerr = errors.Wrapf(err, code, "%s failed", phase)
		err = cerr
	}
	cerr.ForFormula(formula, phase.String())
	return err
}

// Uninstall removes everything the receipt for name records, then the
// receipt itself.
func (o *Orchestrator) Uninstall(ctx context.Context, name string) (*types.InstallManifest, error) {
	var (
		m   *types.InstallManifest
		err error
	)
	lockErr := o.store.WithLock(ctx, name, func() error {
		m, err = o.store.Load(name)
		if err != nil {
			return nil
		}
		if rbErr := manifest.Rollback(o.fs, m, &o.logger); rbErr != nil {
			err = errors.Wrapf(rbErr, errors.ErrFilesystem, "removing %s", name).
				WithDetail(errors.DetailFormula, name)
			return nil
		}
		err = o.store.Delete(name)
		return nil
	})
	if lockErr != nil {
		return nil, errors.Wrapf(lockErr, errors.ErrFilesystem, "locking %s", name).
			WithDetail(errors.DetailFormula, name)
	}
	if err == nil {
		o.logger.Info().Str("formula", name).Int("entries", len(m.Entries)).Msg("Uninstalled")
	}
	return m, err
}
