package state

import (
	"os"
	"path/filepath"
)

// projectMarkers identify a documentation project root.
var projectMarkers = []string{
	"mkdocs.yml",
	"mkdocs.yaml",
	"conf.py",
	filepath.Join("docs", "conf.py"),
}

// FindGitRoot walks up from start looking for a .git entry. The walk stops
// after checking the user's home directory.
func FindGitRoot(start string) (string, bool) {
	home, _ := os.UserHomeDir()

	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		if dir == home {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// FindProjectRoot walks up from start looking for a directory holding a
// docs configuration (mkdocs.yml or a Sphinx conf.py).
func FindProjectRoot(start string) (string, bool) {
	home, _ := os.UserHomeDir()

	dir := start
	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}
		if dir == home {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultProjectDir returns the directory snapshots are keyed by when none
// is given: the enclosing git repository root, else the working directory.
func DefaultProjectDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if root, ok := FindGitRoot(cwd); ok {
		return root
	}
	return cwd
}

// FindSnapshot locates the most plausible snapshot for the working
// directory: the explicit stateDir when given, otherwise the default
// location for the git root, the working directory, and the nearest docs
// project root, in that order.
func FindSnapshot(stateDir string) (string, bool) {
	if stateDir != "" {
		path := filepath.Join(stateDir, snapshotFile)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		return "", false
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	var candidates []string
	if root, ok := FindGitRoot(cwd); ok {
		candidates = append(candidates, root)
	}
	candidates = append(candidates, cwd)
	if root, ok := FindProjectRoot(cwd); ok {
		candidates = append(candidates, root)
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, dir := range candidates {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}

		path := filepath.Join(defaultSnapshotDir(dir), snapshotFile)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
