package paths

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
)

// ValidateComponent ensures s can be used as a single path element, such
// as a formula name or version inside the Cellar. kind names s in errors.
func ValidateComponent(kind, s string) error {
	if s == "" {
		return errors.Newf(errors.ErrInvalidInput, "%s cannot be empty", kind)
	}

	if strings.ContainsAny(s, "/\\") {
		return errors.Newf(errors.ErrInvalidInput, "%s %q cannot contain path separators", kind, s)
	}

	if s == "." || s == ".." {
		return errors.Newf(errors.ErrInvalidInput, "%s cannot be '.' or '..'", kind)
	}

	invalidChars := ":*?\"<>|"
	if strings.ContainsAny(s, invalidChars) {
		return errors.Newf(errors.ErrInvalidInput,
			"%s %q contains invalid characters: %s", kind, s, invalidChars)
	}

	for _, r := range s {
		if r < 32 || r == 127 {
			return errors.Newf(errors.ErrInvalidInput, "%s %q contains control characters", kind, s)
		}
	}

	return nil
}

// ContainsPath checks if child is parent or lies below it. Both paths are
// cleaned before comparison.
func ContainsPath(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
