package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/cellar/pkg/config"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/options"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/registry"
	"github.com/arthur-debert/cellar/pkg/runner"
	"github.com/arthur-debert/cellar/pkg/scheduler"
	"github.com/arthur-debert/cellar/pkg/testutil"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t       *testing.T
	cfg     *config.Config
	runner  *testutil.FakeRunner
	engine  *Engine
	prefix  paths.Prefix
	formula []*types.Formula
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Prefix:         t.TempDir(),
		Concurrency:    2,
		MakeJobs:       2,
		Archs:          []string{"x86_64"},
		UniversalArchs: []string{"x86_64", "arm64"},
		CacheDir:       t.TempDir(),
		Fetch:          config.FetchConfig{Timeout: time.Minute},
	}
	return &fixture{t: t, cfg: cfg, runner: &testutil.FakeRunner{}, prefix: paths.NewPrefix(cfg.Prefix)}
}

// add registers a formula whose source is a local archive and whose
// procedure runs make and installs bin/<name>.
func (fx *fixture) add(b *testutil.FormulaBuilder) *types.Formula {
	f := b.Build()
	archive := testutil.Tarball(fx.t, map[string]string{
		f.Name + "-" + f.Version + "/Makefile": "all:\n",
	})
	f.Source.URL = testutil.WriteArchive(fx.t, f.Name+"-"+f.Version+".tar.gz", archive)
	f.Source.Checksum = testutil.Checksum(archive)
	name := f.Name
	f.Procedure = types.ProcedureFuncs{
		BuildFunc: func(ctx context.Context, env types.BuildEnv) error {
			return env.Run(ctx, "make")
		},
		InstallFunc: func(ctx context.Context, env types.BuildEnv) error {
			return env.WriteFile(filepath.Join(env.Keg().Bin(), name), []byte("#!/bin/sh\n"), 0755)
		},
	}
	fx.formula = append(fx.formula, f)
	return f
}

func (fx *fixture) start() *Engine {
	fx.t.Helper()
	catalog, err := registry.Load(registry.Static(fx.formula...))
	require.NoError(fx.t, err)
	e, err := New(Options{Config: fx.cfg, Catalog: catalog, Runner: fx.runner})
	require.NoError(fx.t, err)
	fx.engine = e
	return e
}

// failBuildOf makes make fail in the source tree of name.
func (fx *fixture) failBuildOf(name string) {
	fx.runner.Handler = func(ctx context.Context, cmd runner.Command) (string, error) {
		if strings.Contains(cmd.Dir, string(os.PathSeparator)+name+"-") {
			return "make: *** [all] Error 2", errors.New(errors.ErrInternal, "exit status 2")
		}
		return "", nil
	}
}

func installFormulas(t *testing.T, e *Engine, names ...string) *Report {
	t.Helper()
	report, err := e.Install(context.Background(), Request{Formulas: names})
	require.NoError(t, err)
	return report
}

func TestInstallWithDependencies(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Depends("lib").BuildDepends("tool"))
	fx.add(testutil.NewFormula("lib"))
	fx.add(testutil.NewFormula("tool"))
	e := fx.start()

	report := installFormulas(t, e, "app")

	assert.Equal(t, []string{"lib", "tool", "app"}, report.Plan.Names())
	assert.Equal(t, []string{"lib", "tool", "app"}, report.Installed())
	for _, name := range []string{"app", "lib", "tool"} {
		testutil.AssertSymlink(t, filepath.Join(fx.prefix.Bin(), name), filepath.Join(fx.prefix.Keg(name, "1.0").Bin(), name))
	}

	tool, ok := report.Step("tool")
	require.True(t, ok)
	assert.True(t, tool.BuildOnly)
	assert.False(t, tool.Pruned)

	receipt, err := e.Receipts().Load("tool")
	require.NoError(t, err)
	assert.True(t, receipt.BuildOnly)
	assert.Equal(t, types.StateInstalled, receipt.State)
	assert.Len(t, fx.runner.Commands(), 3)
}

func TestInstallIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Depends("lib"))
	fx.add(testutil.NewFormula("lib"))
	e := fx.start()

	installFormulas(t, e, "app")
	ran := len(fx.runner.Commands())

	report := installFormulas(t, e, "app")
	assert.Empty(t, report.Installed())
	for _, s := range report.Steps {
		assert.True(t, s.AlreadyInstalled, s.Name)
	}
	assert.Len(t, fx.runner.Commands(), ran, "no build tool runs for installed formulas")
}

// A depends on B at runtime and C at build time; B conflicts with the
// installed D.
func TestInstallConflictWithInstalledFailsBeforeFetch(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("d"))
	fx.add(testutil.NewFormula("a").Depends("b").BuildDepends("c"))
	b := fx.add(testutil.NewFormula("b").Conflicts("d", "both install bin/x"))
	c := fx.add(testutil.NewFormula("c"))
	b.Source.URL = "file:///nonexistent/b.tar.gz"
	c.Source.URL = "file:///nonexistent/c.tar.gz"
	e := fx.start()

	installFormulas(t, e, "d")
	ran := len(fx.runner.Commands())

	report, err := e.Install(context.Background(), Request{Formulas: []string{"a"}})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict), "got %v", err)
	assert.Equal(t, "b", errors.GetDetailString(err, errors.DetailFormula))
	assert.Equal(t, "d", errors.GetDetailString(err, "conflicts_with"))
	assert.True(t, errors.IsResolutionError(err))

	assert.Len(t, fx.runner.Commands(), ran)
	installed, err := e.Receipts().Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, installed)
}

func TestInstallUnknownOption(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Option("with-docs", false))
	e := fx.start()

	_, err := e.Install(context.Background(), Request{
		Formulas: []string{"app"},
		Options:  []options.Request{{Name: "with-doc", Value: true}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownOption))
	assert.Equal(t, "with-docs", errors.GetDetailString(err, "suggestion"))
	assert.Empty(t, fx.runner.Commands())
	testutil.AssertNotExist(t, fx.prefix.Cellar())
}

func TestOptionsApplyToRequestedFormulas(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Depends("lib").Option("with-docs", false))
	fx.add(testutil.NewFormula("lib").Option("with-docs", false))
	fx.add(testutil.NewFormula("other"))
	e := fx.start()

	_, err := e.Install(context.Background(), Request{
		Formulas: []string{"app", "other"},
		Options:  []options.Request{{Name: "with-docs", Value: true}},
	})
	require.NoError(t, err)

	app, err := e.Receipts().Load("app")
	require.NoError(t, err)
	assert.Equal(t, []string{"with-docs"}, app.Options)
	lib, err := e.Receipts().Load("lib")
	require.NoError(t, err)
	assert.Empty(t, lib.Options)
}

func TestInstallFailureSkipsDependents(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Depends("lib"))
	fx.add(testutil.NewFormula("lib"))
	fx.add(testutil.NewFormula("other"))
	fx.failBuildOf("lib")
	e := fx.start()

	report, err := e.Install(context.Background(), Request{Formulas: []string{"app", "other"}})
	require.Error(t, err)
	require.NotNil(t, report)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuild))

	lib, _ := report.Step("lib")
	assert.Equal(t, scheduler.Failed, lib.Outcome)
	assert.Equal(t, "Building", errors.GetDetailString(lib.Err, errors.DetailPhase))
	app, _ := report.Step("app")
	assert.Equal(t, scheduler.Skipped, app.Outcome)
	assert.Equal(t, "lib", app.BlockedBy)
	assert.Equal(t, []string{"other"}, report.Installed())

	installed, err := e.Receipts().Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, installed)
	testutil.AssertNotExist(t, fx.prefix.Keg("lib", "1.0").Root)
}

// waitFor blocks until ch is closed or the test deadline for a step runs out.
func waitFor(ch <-chan struct{}, what string) error {
	select {
	case <-ch:
		return nil
	case <-time.After(10 * time.Second):
		return errors.Newf(errors.ErrInternal, "timed out waiting for %s", what)
	}
}

func TestConcurrentInstallsShareLinkDirectories(t *testing.T) {
	fx := newFixture(t)
	alpha := fx.add(testutil.NewFormula("alpha"))
	beta := fx.add(testutil.NewFormula("beta"))
	bin := fx.prefix.Bin()

	alphaLinked := make(chan struct{})
	betaKegReady := make(chan struct{})

	alpha.Procedure = types.ProcedureFuncs{
		InstallFunc: func(ctx context.Context, env types.BuildEnv) error {
			tool := filepath.Join(env.Keg().Bin(), "alpha-helper")
			if err := env.WriteFile(tool, []byte("#!/bin/sh\n"), 0755); err != nil {
				return err
			}
			if err := env.Symlink(tool, filepath.Join(bin, "alpha-helper")); err != nil {
				return err
			}
			close(alphaLinked)
			if err := waitFor(betaKegReady, "beta keg"); err != nil {
				return err
			}
			return errors.New(errors.ErrBuild, "install step failed")
		},
	}
	beta.Procedure = types.ProcedureFuncs{
		InstallFunc: func(ctx context.Context, env types.BuildEnv) error {
			if err := waitFor(alphaLinked, "alpha link"); err != nil {
				return err
			}
			if err := env.WriteFile(filepath.Join(env.Keg().Bin(), "beta"), []byte("#!/bin/sh\n"), 0755); err != nil {
				return err
			}
			close(betaKegReady)
			// alpha created the shared bin directory; its rollback takes
			// it away before beta links into it.
			deadline := time.Now().Add(10 * time.Second)
			for {
				if _, err := os.Stat(bin); os.IsNotExist(err) {
					return nil
				}
				if time.Now().After(deadline) {
					return errors.New(errors.ErrInternal, "alpha never rolled back")
				}
				time.Sleep(5 * time.Millisecond)
			}
		},
	}
	e := fx.start()

	report, err := e.Install(context.Background(), Request{Formulas: []string{"alpha", "beta"}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrBuild))

	a, _ := report.Step("alpha")
	assert.Equal(t, scheduler.Failed, a.Outcome)
	b, _ := report.Step("beta")
	require.Equal(t, scheduler.Succeeded, b.Outcome, "beta: %v", b.Err)

	testutil.AssertSymlink(t, filepath.Join(bin, "beta"), filepath.Join(fx.prefix.Keg("beta", "1.0").Bin(), "beta"))
	testutil.AssertNotExist(t, filepath.Join(bin, "alpha-helper"))
	installed, err := e.Receipts().Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, installed)

	receipt, err := e.Receipts().Load("beta")
	require.NoError(t, err)
	assert.Contains(t, receipt.Entries, types.ManifestEntry{Kind: types.EntryDirectory, Path: bin})
}

func TestInstallUnknownStrategy(t *testing.T) {
	fx := newFixture(t)
	f := fx.add(testutil.NewFormula("app"))
	f.Source.Strategy = "svn"
	e := fx.start()

	_, err := e.Install(context.Background(), Request{Formulas: []string{"app"}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedArchive))
	assert.Equal(t, "app", errors.GetDetailString(err, errors.DetailFormula))
}

func TestPruneBuildDependencies(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.PruneBuildDependencies = true
	fx.add(testutil.NewFormula("app").BuildDepends("tool"))
	fx.add(testutil.NewFormula("tool"))
	e := fx.start()

	report := installFormulas(t, e, "app")

	tool, _ := report.Step("tool")
	assert.True(t, tool.Pruned)
	installed, err := e.Receipts().Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, installed)
	testutil.AssertNotExist(t, fx.prefix.Keg("tool", "1.0").Root)
	testutil.AssertNotExist(t, filepath.Join(fx.prefix.Bin(), "tool"))
}

func TestPruneKeepsPreviouslyInstalled(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.PruneBuildDependencies = true
	fx.add(testutil.NewFormula("app").BuildDepends("tool"))
	fx.add(testutil.NewFormula("tool"))
	e := fx.start()

	installFormulas(t, e, "tool")
	report := installFormulas(t, e, "app")

	tool, _ := report.Step("tool")
	assert.True(t, tool.AlreadyInstalled)
	assert.False(t, tool.Pruned)
	installed, err := e.Receipts().Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "tool"}, installed)
}

func TestPlanHasNoSideEffects(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Depends("lib"))
	fx.add(testutil.NewFormula("lib"))
	e := fx.start()

	res, err := e.Plan(Request{Formulas: []string{"app"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", "app"}, res.Plan.Names())
	assert.Empty(t, res.Installed)
	assert.Contains(t, res.Graph.Tree(), "lib@1.0")
	assert.Empty(t, fx.runner.Commands())

	_, err = e.Plan(Request{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestUninstall(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Depends("lib"))
	fx.add(testutil.NewFormula("lib"))
	e := fx.start()
	installFormulas(t, e, "app")
	ctx := context.Background()

	_, err := e.Uninstall(ctx, UninstallRequest{Formulas: []string{"lib"}})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict))
	assert.Equal(t, "app", errors.GetDetailString(err, "required_by"))

	removed, err := e.Uninstall(ctx, UninstallRequest{Formulas: []string{"app", "lib"}})
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	testutil.AssertNotExist(t, filepath.Join(fx.prefix.Bin(), "app"))
	testutil.AssertNotExist(t, fx.prefix.Keg("lib", "1.0").Root)

	list, err := e.Installed()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.Uninstall(ctx, UninstallRequest{Formulas: []string{"lib"}})
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestUninstallForce(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Depends("lib"))
	fx.add(testutil.NewFormula("lib"))
	e := fx.start()
	installFormulas(t, e, "app")

	_, err := e.Uninstall(context.Background(), UninstallRequest{Formulas: []string{"lib"}, Force: true})
	require.NoError(t, err)
	installed, err := e.Receipts().Installed()
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, installed)
}

func TestLookup(t *testing.T) {
	fx := newFixture(t)
	fx.add(testutil.NewFormula("app").Version("1.0"))
	fx.add(testutil.NewFormula("app").Version("2.0"))
	e := fx.start()

	f, err := e.Lookup("app")
	require.NoError(t, err)
	assert.Equal(t, "2.0", f.Version)
	f, err = e.Lookup("app@1.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0", f.Version)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}
