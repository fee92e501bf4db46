// Package pathutil maps file paths to the names documents are stored under.
// Stored names always use forward slashes so that an index built on Windows
// answers the same queries as one built elsewhere.
package pathutil

import (
	"path/filepath"
	"strings"
)

// DocumentName returns path relative to root with forward slashes. Paths
// outside root, or an empty root, yield the base name.
func DocumentName(root, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if root == "" {
		return filepath.Base(abs)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil || !HasPrefix(abs, absRoot) {
		return filepath.Base(abs)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == "." {
		return filepath.Base(abs)
	}
	return filepath.ToSlash(rel)
}

// HasPrefix reports whether path is prefix or lies below it. Only whole
// components match: "/data/notes" is not under "/data/no".
func HasPrefix(path, prefix string) bool {
	pathSlash := filepath.ToSlash(filepath.Clean(path))
	prefixSlash := filepath.ToSlash(filepath.Clean(prefix))

	if !strings.HasPrefix(pathSlash, prefixSlash) {
		return false
	}
	if len(pathSlash) > len(prefixSlash) && !strings.HasSuffix(prefixSlash, "/") {
		return pathSlash[len(prefixSlash)] == '/'
	}
	return true
}

// Within reports whether path lies strictly below dir.
func Within(path, dir string) bool {
	return HasPrefix(path, dir) && filepath.Clean(path) != filepath.Clean(dir)
}
