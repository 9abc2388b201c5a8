package config

import (
	"os"
	"path/filepath"
)

// Discover locates the nearest settings file by walking parent directories
// from startDir upward. The first candidate found wins. The second result is
// false when no settings file exists anywhere up the tree; the caller then
// falls back to an empty configuration.
func Discover(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		dir = startDir
	}

	for {
		if found, ok := discoverIn(dir); ok {
			return found, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// discoverIn checks a single directory for any recognized settings file.
func discoverIn(dir string) (string, bool) {
	for _, name := range SettingsFileNames {
		candidate := filepath.Join(dir, filepath.FromSlash(name))
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// DefaultPath returns the fallback settings path used when discovery finds
// nothing.
func DefaultPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, SettingsFileNames[0])
}
