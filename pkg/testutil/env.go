package testutil

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/types"
)

// FakeEnv is an in-memory types.BuildEnv. Commands are recorded instead of
// run and files live in Files, keyed by absolute path.
type FakeEnv struct {
	Source string
	Cfg    types.BuildConfig
	// RunErr, when set, decides the outcome of each command.
	RunErr func(name string, args []string) error

	mu       sync.Mutex
	Files    map[string]string
	Dirs     []string
	Links    map[string]string
	Moves    [][2]string
	commands [][]string
}

// NewFakeEnv returns an env whose keg is <prefix>/Cellar/<name>/<version>.
func NewFakeEnv(prefix, name, version string, opts map[string]bool) *FakeEnv {
	return &FakeEnv{
		Source: filepath.Join(prefix, "src"),
		Cfg: types.BuildConfig{
			Options: types.NewSelection(opts),
			Keg:     paths.NewPrefix(prefix).Keg(name, version),
			Archs:   []string{"x86_64"},
			Jobs:    4,
		},
		Files: make(map[string]string),
		Links: make(map[string]string),
	}
}

func (e *FakeEnv) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(e.Source, p)
}

// Commands returns every command run, name first.
func (e *FakeEnv) Commands() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, len(e.commands))
	copy(out, e.commands)
	return out
}

// CommandLines returns Commands joined with spaces.
func (e *FakeEnv) CommandLines() []string {
	var out []string
	for _, c := range e.Commands() {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

func (e *FakeEnv) SourceDir() string         { return e.Source }
func (e *FakeEnv) Config() types.BuildConfig { return e.Cfg }
func (e *FakeEnv) Keg() paths.Keg            { return e.Cfg.Keg }

func (e *FakeEnv) Run(ctx context.Context, name string, args ...string) error {
	e.mu.Lock()
	e.commands = append(e.commands, append([]string{name}, args...))
	e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.RunErr != nil {
		return e.RunErr(name, args)
	}
	return nil
}

// System splits cmdline on whitespace only.
func (e *FakeEnv) System(ctx context.Context, cmdline string, args ...string) error {
	words := append(strings.Fields(cmdline), args...)
	return e.Run(ctx, words[0], words[1:]...)
}

// Stat reports entries of Files as files, and Dirs or any parent of a
// stored file as directories.
func (e *FakeEnv) Stat(path string) (fs.FileInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.abs(path)
	if data, ok := e.Files[p]; ok {
		return fakeInfo{name: filepath.Base(p), size: int64(len(data))}, nil
	}
	for _, d := range e.Dirs {
		if d == p {
			return fakeInfo{name: filepath.Base(p), dir: true}, nil
		}
	}
	for f := range e.Files {
		if strings.HasPrefix(f, p+string(filepath.Separator)) {
			return fakeInfo{name: filepath.Base(p), dir: true}, nil
		}
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
}

func (e *FakeEnv) MkdirAll(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Dirs = append(e.Dirs, e.abs(path))
	return nil
}

func (e *FakeEnv) WriteFile(path string, data []byte, _ fs.FileMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Files[e.abs(path)] = string(data)
	return nil
}

func (e *FakeEnv) Symlink(target, link string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Links[e.abs(link)] = target
	return nil
}

func (e *FakeEnv) Move(src, dst string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Moves = append(e.Moves, [2]string{e.abs(src), e.abs(dst)})
	return nil
}

func (e *FakeEnv) RemoveAll(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.Files, e.abs(path))
	return nil
}

// InReplace edits a file previously stored in Files.
func (e *FakeEnv) InReplace(path string, pattern *regexp.Regexp, repl string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.abs(path)
	data, ok := e.Files[p]
	if !ok {
		return &fs.PathError{Op: "inreplace", Path: p, Err: os.ErrNotExist}
	}
	e.Files[p] = pattern.ReplaceAllString(data, repl)
	return nil
}

var _ types.BuildEnv = (*FakeEnv)(nil)

type fakeInfo struct {
	name string
	size int64
	dir  bool
}

func (i fakeInfo) Name() string       { return i.name }
func (i fakeInfo) Size() int64        { return i.size }
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return i.dir }
func (i fakeInfo) Sys() any           { return nil }

func (i fakeInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0755
	}
	return 0644
}
