package install

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arthur-debert/cellar/pkg/download"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/runner"
	"github.com/arthur-debert/cellar/pkg/service"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/rs/zerolog"
)

// run is the state of one install.
type run struct {
	o        *Orchestrator
	req      Request
	cfg      types.BuildConfig
	keg      paths.Keg
	m        *types.InstallManifest
	logger   zerolog.Logger
	state    types.InstallState
	workDir  string
	download *types.DownloadResult
	env      *Env
}

func (r *run) transition(to types.InstallState) {
	from := r.state
	if !from.CanTransition(to) {
		r.logger.Error().Str("from", from.String()).Str("to", to.String()).Msg("Illegal state transition")
		return
	}
	r.state = to
	r.m.SetState(to)
	r.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("State transition")
	if r.o.onTransition != nil {
		r.o.onTransition(r.req.Formula.Name, from, to)
	}
}

func (r *run) execute(ctx context.Context) error {
	phases := []struct {
		state types.InstallState
		fn    func(context.Context) error
	}{
		{types.StateFetching, r.fetch},
		{types.StatePatching, r.patch},
		{types.StateConfiguring, r.configure},
		{types.StateBuilding, r.build},
		{types.StateInstalling, r.install},
		{types.StateFinalizing, r.finalize},
	}

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, errors.ErrCanceled, "canceled before %s", p.state)
		}
		r.transition(p.state)
		if err := p.fn(ctx); err != nil {
			return err
		}
	}
	r.transition(types.StateInstalled)
	return nil
}

func (r *run) cleanup() {
	if r.o.keepDownloads {
		r.logger.Debug().Str("work_dir", r.workDir).Msg("Keeping work directory")
		return
	}
	if err := os.RemoveAll(r.workDir); err != nil {
		r.logger.Warn().Err(err).Str("work_dir", r.workDir).Msg("Failed to remove work directory")
	}
}

func (r *run) fetch(ctx context.Context) error {
	f := r.req.Formula
	res, err := r.req.Strategy.Fetch(ctx, download.Request{
		Formula: f.Name,
		Source:  f.Source,
		Version: f.SourceVersion(),
		WorkDir: r.workDir,
	})
	if err != nil {
		return err
	}
	r.download = res
	r.env = &Env{
		formula:  f.Name,
		source:   res.SourceDir,
		cfg:      r.cfg,
		fs:       r.o.fs,
		runner:   r.o.runner,
		manifest: r.m,
		timeout:  r.o.buildTimeout,
		logger:   r.logger,
	}
	r.logger.Debug().Str("source_dir", res.SourceDir).Str("checksum", res.Checksum).Msg("Source ready")
	return nil
}

func (r *run) patch(ctx context.Context) error {
	for i, p := range r.req.Formula.Patches {
		file, err := r.patchFile(ctx, i, p)
		if err != nil {
			return err
		}

		_, err = r.o.runner.Run(ctx, runner.Command{
			Name:    "patch",
			Args:    []string{"-p" + strconv.Itoa(p.StripLevel()), "-i", file},
			Dir:     r.env.source,
			Timeout: r.o.buildTimeout,
		})
		if err != nil {
			cerr := errors.Wrapf(err, errors.ErrPatch, "applying patch %s", p.Source).
				WithDetail("patch", p.Source)
			if rerr, ok := err.(*runner.Error); ok {
				cerr.WithDetail(errors.DetailOutput, rerr.Output)
			}
			return cerr
		}
		r.logger.Debug().Str("patch", p.Source).Msg("Patch applied")
	}
	return nil
}

// patchFile returns a local, verified copy of patch p.
func (r *run) patchFile(ctx context.Context, i int, p types.Patch) (string, error) {
	if isRemote(p.Source) {
		dir := filepath.Join(r.workDir, "patches", strconv.Itoa(i))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.Wrapf(err, errors.ErrFilesystem, "creating %s", dir)
		}
		if p.Checksum == "" {
			r.logger.Warn().Str("patch", p.Source).Msg("Patch has no checksum, applying unverified")
			return download.FetchFile(ctx, r.o.fetcher, p.Source, dir)
		}
		path, _, err := download.FetchVerified(ctx, r.o.fetcher, p.Source, p.Checksum, dir)
		return path, err
	}

	path := strings.TrimPrefix(p.Source, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.env.source, path)
	}
	if p.Checksum != "" {
		if _, err := download.Verify(path, p.Checksum); err != nil {
			return "", err
		}
	}
	return path, nil
}

func isRemote(source string) bool {
	scheme, _, ok := strings.Cut(source, "://")
	return ok && scheme != "file"
}

func (r *run) configure(ctx context.Context) error {
	return r.req.Formula.Procedure.Configure(ctx, r.env)
}

func (r *run) build(ctx context.Context) error {
	return r.req.Formula.Procedure.Build(ctx, r.env)
}

func (r *run) install(ctx context.Context) error {
	if err := r.createKeg(); err != nil {
		return err
	}
	return r.req.Formula.Procedure.Install(ctx, r.env)
}

// createKeg creates the keg directory, which the manifest records as one
// tree owned by this install.
func (r *run) createKeg() error {
	fsys := r.o.fs
	if _, err := fsys.Lstat(r.keg.Root); err == nil {
		// No receipt claims it, so it is debris from a run that died
		// before recording anything.
		r.logger.Warn().Str("keg", r.keg.Root).Msg("Removing unclaimed keg")
		if err := fsys.RemoveAll(r.keg.Root); err != nil {
			return r.env.fsError(err, "mkdir", r.keg.Root, "removing stale keg %s", r.keg.Root)
		}
	}
	if err := r.env.mkdirAll(filepath.Dir(r.keg.Root)); err != nil {
		return err
	}
	if err := fsys.MkdirAll(r.keg.Root, 0755); err != nil {
		return r.env.fsError(err, "mkdir", r.keg.Root, "creating keg %s", r.keg.Root)
	}
	r.m.Record(types.EntryTree, r.keg.Root, "")
	return nil
}

func (r *run) finalize(ctx context.Context) error {
	if svc := r.req.Formula.Service; svc != nil {
		data, err := service.Render(*svc, r.keg)
		if err != nil {
			return err
		}
		if err := r.env.WriteFile(filepath.Join(r.keg.Root, service.FileName(r.keg.Name, *svc)), data, 0644); err != nil {
			return err
		}
	}

	for _, dir := range paths.LinkedDirs {
		src := filepath.Join(r.keg.Root, dir)
		if _, err := r.o.fs.Stat(src); err != nil {
			continue
		}
		if err := r.linkTree(src, filepath.Join(r.o.prefix.Root, dir)); err != nil {
			return err
		}
	}

	if err := r.linkOpt(); err != nil {
		return err
	}

	if fn := r.req.Formula.CaveatsFunc; fn != nil {
		r.m.Caveats = fn(r.env)
	}

	// The receipt is written as Installed; the state machine follows once
	// it is on disk.
	r.m.Complete()
	saved := r.m.Clone()
	saved.State = types.StateInstalled
	return r.o.store.Save(saved)
}

// linkTree mirrors the files under src into dst as symlinks, creating
// directories as needed.
func (r *run) linkTree(src, dst string) error {
	entries, err := r.o.fs.ReadDir(src)
	if err != nil {
		return r.env.fsError(err, "link", src, "reading %s", src)
	}
	if err := r.env.mkdirAll(dst); err != nil {
		return err
	}

	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := r.linkTree(from, to); err != nil {
				return err
			}
			continue
		}

		if _, err := r.o.fs.Lstat(to); err == nil {
			if target, _ := r.o.fs.Readlink(to); target == from {
				continue
			}
			return errors.Newf(errors.ErrFilesystem, "cannot link %s: %s already exists", from, to).
				WithDetail(errors.DetailFormula, r.keg.Name).
				WithDetail("op", "link").
				WithDetail("path", to)
		}
		if err := r.env.Symlink(from, to); err != nil {
			return err
		}
	}
	return nil
}

// linkOpt points <prefix>/opt/<name> at the keg, replacing a link left by
// another version.
func (r *run) linkOpt() error {
	link := r.keg.Opt()
	if info, err := r.o.fs.Lstat(link); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return errors.Newf(errors.ErrFilesystem, "%s exists and is not a symlink", link).
				WithDetail(errors.DetailFormula, r.keg.Name).
				WithDetail("path", link)
		}
		if err := r.o.fs.Remove(link); err != nil {
			return r.env.fsError(err, "link", link, "replacing %s", link)
		}
	}
	return r.env.Symlink(r.keg.Root, link)
}
