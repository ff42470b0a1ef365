package manifest

import (
	"os"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Rollback removes what m recorded, newest first. Directories are removed
// only when empty. Entries that are already gone are skipped. Every entry
// is attempted; the failures are returned together. Entries outside the
// manifest's prefix are never removed.
func Rollback(fsys types.FS, m *types.InstallManifest, logger *zerolog.Logger) error {
	log := logging.OrDefault(logger, "manifest")
	entries := m.Snapshot()

	var result *multierror.Error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if m.Prefix != "" && !paths.ContainsPath(m.Prefix, e.Path) {
			err := errors.Newf(errors.ErrFilesystem, "refusing to remove %s outside prefix %s", e.Path, m.Prefix).
				WithDetail(errors.DetailFormula, m.Formula)
			log.Warn().Str("formula", m.Formula).Str("path", e.Path).Msg("Rollback entry outside prefix")
			result = multierror.Append(result, err)
			continue
		}
		if err := remove(fsys, e); err != nil {
			log.Warn().Err(err).Str("formula", m.Formula).Str("path", e.Path).Msg("Rollback step failed")
			result = multierror.Append(result, err)
			continue
		}
		log.Trace().Str("kind", string(e.Kind)).Str("path", e.Path).Msg("Rolled back")
	}
	return result.ErrorOrNil()
}

func remove(fsys types.FS, e types.ManifestEntry) error {
	if _, err := fsys.Lstat(e.Path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	switch e.Kind {
	case types.EntryTree:
		return fsys.RemoveAll(e.Path)
	case types.EntryDirectory:
		children, err := fsys.ReadDir(e.Path)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return nil
		}
		return fsys.Remove(e.Path)
	default:
		return fsys.Remove(e.Path)
	}
}
