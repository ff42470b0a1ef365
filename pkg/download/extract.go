package download

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	cerrors "github.com/arthur-debert/cellar/pkg/errors"
	getter "github.com/hashicorp/go-getter"
)

// ArchiveFormat returns the decompressor key for an archive file name, or
// "" when the format is not recognised. Longer suffixes win, so
// "x.tar.gz" is "tar.gz" rather than "gz".
func ArchiveFormat(name string) string {
	keys := make([]string, 0, len(getter.Decompressors))
	for k := range getter.Decompressors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	lower := strings.ToLower(name)
	for _, k := range keys {
		if strings.HasSuffix(lower, "."+k) {
			return k
		}
	}
	return ""
}

// Extract unpacks archive into dest and returns the source root: the single
// top-level directory when the archive has one, dest otherwise.
func Extract(archive, dest string) (string, error) {
	format := ArchiveFormat(archive)
	d, ok := getter.Decompressors[format]
	if !ok {
		return "", cerrors.Newf(cerrors.ErrUnsupportedArchive, "unrecognised archive format: %s", filepath.Base(archive))
	}

	if err := d.Decompress(dest, archive, true, 0); err != nil {
		return "", cerrors.Wrapf(err, cerrors.ErrUnsupportedArchive, "extracting %s", filepath.Base(archive)).
			WithDetail("format", format)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", cerrors.Wrapf(err, cerrors.ErrFilesystem, "reading %s", dest)
	}
	if len(entries) == 0 {
		return "", cerrors.Newf(cerrors.ErrUnsupportedArchive, "archive %s is empty", filepath.Base(archive))
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), nil
	}
	return dest, nil
}
