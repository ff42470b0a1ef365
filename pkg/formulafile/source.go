package formulafile

import (
	"io/fs"
	"os"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/arthur-debert/cellar/pkg/registry"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Pattern matches formula files below a formula directory.
const Pattern = "**/*.{toml,yaml,yml}"

// Dir returns a registry source reading every formula file below dirs on
// the local disk. Missing directories are skipped.
func Dir(dirs ...string) registry.Source {
	return DirFS(afero.NewOsFs(), dirs...)
}

// DirFS is Dir over an arbitrary filesystem.
func DirFS(fsys afero.Fs, dirs ...string) registry.Source {
	return registry.SourceFunc(func() ([]*types.Formula, error) {
		logger := logging.GetLogger("formulafile")
		var out []*types.Formula
		for _, dir := range dirs {
			if _, err := fsys.Stat(dir); err != nil {
				if os.IsNotExist(err) {
					logger.Warn().Str("dir", dir).Msg("formula directory does not exist")
					continue
				}
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read formula directory %s", dir)
			}

			root := afero.NewIOFS(afero.NewBasePathFs(fsys, dir))
			matches, err := doublestar.Glob(root, Pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot scan formula directory %s", dir)
			}
			for _, m := range matches {
				f, err := readFile(root, m)
				if err != nil {
					return nil, err
				}
				logger.Debug().Str("file", m).Str("formula", f.Identity().String()).Msg("loaded formula file")
				out = append(out, f)
			}
		}
		return out, nil
	})
}

func readFile(root fs.FS, name string) (*types.Formula, error) {
	format, ok := FormatOf(name)
	if !ok {
		return nil, errors.Newf(errors.ErrInvalidInput, "not a formula file: %s", name)
	}
	data, err := fs.ReadFile(root, name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read formula file %s", name)
	}
	return Parse(name, data, format)
}
