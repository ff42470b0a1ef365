package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
)

// GenerateConfigContent returns the default configuration with every value
// commented out, as a starting point for a user config file.
func GenerateConfigContent() string {
	return commentOutConfigValues(DefaultContent())
}

// commentOutConfigValues takes the TOML content and comments out all non-comment, non-blank lines
// that contain configuration values (assignments)
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "#"):
			result = append(result, line)
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			// Section headers stay so uncommenting a value keeps it in place
			result = append(result, line)
		default:
			result = append(result, "# "+line)
		}
	}

	return strings.Join(result, "\n")
}

// WriteUserConfig writes GenerateConfigContent to path, or to the default
// user config file when path is empty, and returns where it wrote. An
// existing file is kept unless force is set.
func WriteUserConfig(path string, force bool) (string, error) {
	if path == "" {
		path, _ = userConfigPath("")
	}
	if path == "" {
		return "", errors.New(errors.ErrInvalidInput, "no config file location; set CELLAR_CONFIG")
	}

	if _, err := os.Stat(path); err == nil && !force {
		return path, errors.Newf(errors.ErrAlreadyExists, "config file %s already exists", path).
			WithDetail("path", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, errors.Wrapf(err, errors.ErrFilesystem, "creating %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(GenerateConfigContent()), 0644); err != nil {
		return path, errors.Wrapf(err, errors.ErrFilesystem, "writing %s", path)
	}
	return path, nil
}
