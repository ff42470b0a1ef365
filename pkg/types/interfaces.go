package types

import (
	"context"
	"io/fs"
	"regexp"

	"github.com/arthur-debert/cellar/pkg/paths"
)

// FS is the filesystem interface required for cellar operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	Mkdir(name string, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error

	// For filesystems without symlinks, Lstat can fall back to Stat
	Lstat(name string) (fs.FileInfo, error)
}

// BuildEnv is what an install procedure sees while it runs. Every
// filesystem helper records what it creates in the install manifest, so
// procedures should prefer these over touching the disk directly.
type BuildEnv interface {
	// SourceDir is the extracted (and patched) source tree.
	SourceDir() string
	// Config is the immutable build configuration for this install.
	Config() BuildConfig
	// Keg is the formula's private install prefix.
	Keg() paths.Keg

	// Run invokes a build tool in the source directory.
	Run(ctx context.Context, name string, args ...string) error
	// System splits cmdline into words and runs it like Run.
	System(ctx context.Context, cmdline string, args ...string) error

	// Stat reports on path without recording anything.
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string) error
	WriteFile(path string, data []byte, perm fs.FileMode) error
	Symlink(target, link string) error
	// Move renames src to dst. When dst is an existing directory src is
	// moved into it.
	Move(src, dst string) error
	RemoveAll(path string) error
	// InReplace rewrites every match of pattern in the file at path.
	InReplace(path string, pattern *regexp.Regexp, repl string) error
}

// Procedure is a formula's install procedure, split along the orchestrator
// phases it runs in.
type Procedure interface {
	Configure(ctx context.Context, env BuildEnv) error
	Build(ctx context.Context, env BuildEnv) error
	Install(ctx context.Context, env BuildEnv) error
}

// ProcedureFuncs adapts plain functions to Procedure. Nil phases are no-ops.
type ProcedureFuncs struct {
	ConfigureFunc func(ctx context.Context, env BuildEnv) error
	BuildFunc     func(ctx context.Context, env BuildEnv) error
	InstallFunc   func(ctx context.Context, env BuildEnv) error
}

func (p ProcedureFuncs) Configure(ctx context.Context, env BuildEnv) error {
	if p.ConfigureFunc == nil {
		return nil
	}
	return p.ConfigureFunc(ctx, env)
}

func (p ProcedureFuncs) Build(ctx context.Context, env BuildEnv) error {
	if p.BuildFunc == nil {
		return nil
	}
	return p.BuildFunc(ctx, env)
}

func (p ProcedureFuncs) Install(ctx context.Context, env BuildEnv) error {
	if p.InstallFunc == nil {
		return nil
	}
	return p.InstallFunc(ctx, env)
}

var _ Procedure = ProcedureFuncs{}
