package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath makes path absolute: "~/" expands to the home directory and
// other relative paths are taken relative to baseDir.
func ResolvePath(path, baseDir string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
