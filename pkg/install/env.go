package install

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/runner"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"
)

// Env is the types.BuildEnv handed to install procedures. Every
// filesystem helper records what it creates in the run's manifest.
type Env struct {
	formula  string
	source   string
	cfg      types.BuildConfig
	fs       types.FS
	runner   runner.Runner
	manifest *types.InstallManifest
	timeout  time.Duration
	logger   zerolog.Logger
}

var _ types.BuildEnv = (*Env)(nil)

func (e *Env) SourceDir() string         { return e.source }
func (e *Env) Config() types.BuildConfig { return e.cfg }
func (e *Env) Keg() paths.Keg            { return e.cfg.Keg }

// abs resolves relative paths against the source directory.
func (e *Env) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(e.source, path)
}

// toolEnv is the environment build tools run with.
func (e *Env) toolEnv() map[string]string {
	env := make(map[string]string, len(e.cfg.Env)+2)
	for k, v := range e.cfg.Env {
		env[k] = v
	}
	if _, ok := env["MAKEFLAGS"]; !ok {
		env["MAKEFLAGS"] = e.cfg.JobsFlag()
	}
	if _, ok := env["ARCHFLAGS"]; !ok && e.cfg.Universal() {
		flags := make([]string, 0, 2*len(e.cfg.Archs))
		for _, a := range e.cfg.Archs {
			flags = append(flags, "-arch", a)
		}
		env["ARCHFLAGS"] = strings.Join(flags, " ")
	}
	return env
}

// Run invokes a build tool in the source directory.
func (e *Env) Run(ctx context.Context, name string, args ...string) error {
	_, err := e.runner.Run(ctx, runner.Command{
		Name:    name,
		Args:    args,
		Dir:     e.source,
		Env:     e.toolEnv(),
		Timeout: e.timeout,
	})
	if err != nil {
		return buildError(e.formula, err)
	}
	return nil
}

// System splits cmdline into words and runs it with args appended.
func (e *Env) System(ctx context.Context, cmdline string, args ...string) error {
	words, err := shellwords.Parse(cmdline)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBuild, "parsing command %q", cmdline).
			WithDetail(errors.DetailFormula, e.formula)
	}
	words = append(words, args...)
	if len(words) == 0 {
		return errors.New(errors.ErrBuild, "empty command").WithDetail(errors.DetailFormula, e.formula)
	}
	return e.Run(ctx, words[0], words[1:]...)
}

// Stat reports on path through the install filesystem.
func (e *Env) Stat(path string) (fs.FileInfo, error) {
	return e.fs.Stat(e.abs(path))
}

// MkdirAll creates path and records every directory it had to create.
func (e *Env) MkdirAll(path string) error {
	return e.mkdirAll(e.abs(path))
}

func (e *Env) mkdirAll(path string) error {
	var missing []string
	for dir := path; ; dir = filepath.Dir(dir) {
		info, err := e.fs.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return e.fsError(nil, "mkdir", path, "%s is not a directory", dir)
			}
			break
		}
		if !os.IsNotExist(err) {
			return e.fsError(err, "mkdir", path, "checking %s", dir)
		}
		missing = append(missing, dir)
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	// Only directories this call created are recorded. One that appears
	// in between belongs to whichever install created it.
	for i := len(missing) - 1; i >= 0; i-- {
		dir := missing[i]
		err := e.fs.Mkdir(dir, 0755)
		switch {
		case err == nil:
			e.record(types.EntryDirectory, dir, "")
		case os.IsExist(err):
			info, statErr := e.fs.Stat(dir)
			if statErr != nil {
				return e.fsError(statErr, "mkdir", dir, "checking %s", dir)
			}
			if !info.IsDir() {
				return e.fsError(nil, "mkdir", path, "%s is not a directory", dir)
			}
		default:
			return e.fsError(err, "mkdir", dir, "creating directory %s", dir)
		}
	}
	return nil
}

// placeIn runs place after making sure dir exists. A shared directory can
// be removed by another install's rollback between the two steps, so a
// missing directory is recreated and place retried once.
func (e *Env) placeIn(dir string, place func() error) error {
	if err := e.mkdirAll(dir); err != nil {
		return err
	}
	err := place()
	if err == nil || !os.IsNotExist(err) {
		return err
	}
	if _, statErr := e.fs.Stat(dir); !os.IsNotExist(statErr) {
		return err
	}
	e.logger.Debug().Str("dir", dir).Msg("Directory vanished, recreating")
	if err := e.mkdirAll(dir); err != nil {
		return err
	}
	return place()
}

// record adds an entry to the manifest. Paths inside the source tree are
// scratch space and are not recorded.
func (e *Env) record(kind types.EntryKind, path, target string) {
	if paths.ContainsPath(e.source, path) {
		return
	}
	e.manifest.Record(kind, path, target)
}

// WriteFile writes data to path, creating parent directories.
func (e *Env) WriteFile(path string, data []byte, perm fs.FileMode) error {
	path = e.abs(path)
	var statErr error
	err := e.placeIn(filepath.Dir(path), func() error {
		_, statErr = e.fs.Lstat(path)
		return e.fs.WriteFile(path, data, perm)
	})
	if err != nil {
		return e.wrapPlaceError(err, "write", path, "writing %s", path)
	}
	if os.IsNotExist(statErr) {
		e.record(types.EntryFile, path, "")
	}
	return nil
}

// Symlink creates link pointing at target.
func (e *Env) Symlink(target, link string) error {
	link = e.abs(link)
	err := e.placeIn(filepath.Dir(link), func() error {
		return e.fs.Symlink(target, link)
	})
	if err != nil {
		return e.wrapPlaceError(err, "symlink", link, "linking %s -> %s", link, target)
	}
	e.record(types.EntrySymlink, link, target)
	return nil
}

// Move renames src to dst, or into dst when dst is a directory.
func (e *Env) Move(src, dst string) error {
	src, dst = e.abs(src), e.abs(dst)
	if info, err := e.fs.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	info, err := e.fs.Lstat(src)
	if err != nil {
		return e.fsError(err, "move", src, "moving %s", src)
	}
	err = e.placeIn(filepath.Dir(dst), func() error {
		return e.fs.Rename(src, dst)
	})
	if err != nil {
		return e.wrapPlaceError(err, "move", dst, "moving %s to %s", src, dst)
	}

	kind := types.EntryFile
	if info.IsDir() {
		kind = types.EntryTree
	}
	e.record(kind, dst, "")
	return nil
}

// RemoveAll deletes path. Removals are not recorded.
func (e *Env) RemoveAll(path string) error {
	path = e.abs(path)
	if err := e.fs.RemoveAll(path); err != nil {
		return e.fsError(err, "remove", path, "removing %s", path)
	}
	return nil
}

// InReplace rewrites every match of pattern in path. A pattern that no
// longer matches is an error, since the edit it stood for silently
// stopped applying.
func (e *Env) InReplace(path string, pattern *regexp.Regexp, repl string) error {
	path = e.abs(path)
	info, err := e.fs.Stat(path)
	if err != nil {
		return e.fsError(err, "inreplace", path, "reading %s", path)
	}
	data, err := e.fs.ReadFile(path)
	if err != nil {
		return e.fsError(err, "inreplace", path, "reading %s", path)
	}
	if !pattern.Match(data) {
		return e.fsError(stderrors.New("pattern not found"), "inreplace", path,
			"%s does not match %s", path, pattern.String())
	}
	out := pattern.ReplaceAll(data, []byte(repl))
	if err := e.fs.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return e.fsError(err, "inreplace", path, "writing %s", path)
	}
	e.logger.Debug().Str("path", path).Str("pattern", pattern.String()).Msg("Rewrote file")
	return nil
}

// wrapPlaceError passes errors from placeIn's own directory handling
// through and wraps the placement failure itself.
func (e *Env) wrapPlaceError(err error, op, path, format string, args ...interface{}) error {
	if errors.IsErrorCode(err, errors.ErrFilesystem) {
		return err
	}
	return e.fsError(err, op, path, format, args...)
}

// fsError builds a FilesystemError for op on path. A nil err yields an
// error carrying only the formatted message.
func (e *Env) fsError(err error, op, path, format string, args ...interface{}) error {
	var cerr *errors.CellarError
	if err == nil {
		cerr = errors.Newf(errors.ErrFilesystem, format, args...)
	} else {
		cerr = errors.Wrapf(err, errors.ErrFilesystem, format, args...)
	}
	return cerr.
		WithDetail(errors.DetailFormula, e.formula).
		WithDetail("op", op).
		WithDetail("path", path)
}

// buildError turns a runner failure into a BuildError carrying the
// tool's output.
func buildError(formula string, err error) error {
	var rerr *runner.Error
	if !stderrors.As(err, &rerr) {
		return errors.Wrap(err, errors.ErrBuild, "build tool failed").WithDetail(errors.DetailFormula, formula)
	}

	msg := "build tool failed"
	switch {
	case rerr.Timeout:
		msg = "build tool timed out"
	case rerr.Canceled:
		msg = "build tool canceled"
	}
	cerr := errors.Wrap(err, errors.ErrBuild, msg).
		WithDetail(errors.DetailFormula, formula).
		WithDetail("command", rerr.Cmdline).
		WithDetail("exit_code", rerr.ExitCode).
		WithDetail(errors.DetailOutput, rerr.Output)
	if rerr.Timeout {
		cerr.WithDetail(errors.DetailTimeout, true)
	}
	return cerr
}
