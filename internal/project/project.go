// Package project names the project an event belongs to from a filesystem
// path, by walking up to the nearest directory holding a project marker.
package project

import (
	"os"
	"path/filepath"
)

// markers are checked in order at every level on the way up. A .git
// directory wins over a build file sitting deeper in a monorepo.
var markers = []string{
	".git",
	"package.json",
	"Cargo.toml",
	"go.mod",
	"pyproject.toml",
	"setup.py",
	"pom.xml",
	"build.gradle",
	"Makefile",
	"CMakeLists.txt",
}

// DetectRoot walks up from path and returns the first directory containing
// a project marker. The path itself may be a file or a directory.
func DetectRoot(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	current := filepath.Clean(path)
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Detect returns the project name for a path: the base name of the marker
// directory, or the immediate parent directory name when no marker exists
// anywhere up the tree. Empty when nothing sensible can be derived.
func Detect(path string) string {
	if root, ok := DetectRoot(path); ok {
		return filepath.Base(root)
	}

	parent := filepath.Dir(filepath.Clean(path))
	base := filepath.Base(parent)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
