// Package manifest persists install manifests ("receipts") under the
// prefix and rolls back what they record.
package manifest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/danjacques/gofslock/fslock"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	receiptExt    = ".yaml"
	lockExt       = ".lock"
	lockHeldDelay = 50 * time.Millisecond
)

// Store reads and writes receipts for one prefix.
type Store struct {
	prefix paths.Prefix
	fs     types.FS
	logger zerolog.Logger
}

// NewStore creates a receipt store. Locks are always taken on the real
// filesystem, so fsys must be backed by the OS when several processes
// share the prefix.
func NewStore(prefix paths.Prefix, fsys types.FS, logger *zerolog.Logger) *Store {
	return &Store{
		prefix: prefix,
		fs:     fsys,
		logger: logging.OrDefault(logger, "manifest"),
	}
}

// Path is where the receipt for name lives.
func (s *Store) Path(name string) string {
	return filepath.Join(s.prefix.Receipts(), name+receiptExt)
}

func (s *Store) lockPath(name string) string {
	return filepath.Join(s.prefix.Receipts(), "."+name+lockExt)
}

// WithLock runs fn holding the exclusive lock for name, waiting for other
// holders until ctx is done.
func (s *Store) WithLock(ctx context.Context, name string, fn func() error) error {
	if err := os.MkdirAll(s.prefix.Receipts(), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "creating %s", s.prefix.Receipts())
	}
	blocker := func() error {
		s.logger.Debug().Str("formula", name).Msg("Receipt lock is held, waiting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockHeldDelay):
			return nil
		}
	}
	return fslock.WithBlocking(s.lockPath(name), blocker, fn)
}

// Load reads the receipt for name. A missing receipt is ErrNotFound.
func (s *Store) Load(name string) (*types.InstallManifest, error) {
	data, err := s.fs.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "%s is not installed", name).
				WithDetail(errors.DetailFormula, name)
		}
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "reading receipt for %s", name)
	}

	m := &types.InstallManifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "parsing receipt for %s", name).
			WithDetail("path", s.Path(name))
	}
	return m, nil
}

// Save writes m atomically.
func (s *Store) Save(m *types.InstallManifest) error {
	snap := m.Clone()
	data, err := yaml.Marshal(snap)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "encoding receipt for %s", snap.Formula)
	}

	if err := s.fs.MkdirAll(s.prefix.Receipts(), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "creating %s", s.prefix.Receipts())
	}
	path := s.Path(snap.Formula)
	tmp := path + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFilesystem, "writing receipt for %s", snap.Formula)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, errors.ErrFilesystem, "writing receipt for %s", snap.Formula)
	}

	s.logger.Debug().
		Str("formula", snap.Formula).
		Str("state", snap.State.String()).
		Int("entries", len(snap.Entries)).
		Msg("Receipt saved")
	return nil
}

// Delete removes the receipt for name. A missing receipt is not an error.
func (s *Store) Delete(name string) error {
	if err := s.fs.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrFilesystem, "deleting receipt for %s", name)
	}
	return nil
}

// List loads every receipt, sorted by formula name.
func (s *Store) List() ([]*types.InstallManifest, error) {
	entries, err := s.fs.ReadDir(s.prefix.Receipts())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFilesystem, "listing %s", s.prefix.Receipts())
	}

	var out []*types.InstallManifest
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, receiptExt) {
			continue
		}
		m, err := s.Load(strings.TrimSuffix(name, receiptExt))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Formula < out[j].Formula })
	return out, nil
}

// Installed returns the names of formulas whose receipt says Installed.
func (s *Store) Installed() ([]string, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range all {
		if m.State == types.StateInstalled {
			names = append(names, m.Formula)
		}
	}
	return names, nil
}
