// Package backend implements DVS's workspace-discovery abstraction (spec
// §3 Backend, §4.3): finding the repo root that anchors every relative
// path, and maintaining the ignore file that keeps companion data files
// out of source control.
package backend

import (
	"os"
	"path/filepath"

	"github.com/a2-ai/dvs/internal/config"
)

// Type identifies which kind of workspace root was discovered.
type Type string

const (
	TypeGit Type = "git"
	TypeDvs Type = "dvs"
)

// Backend is the ownership root every DVS operation anchors relative paths
// to. Git backends additionally enforce gitignore-style pattern matching and
// expose the current branch; Dvs-only backends do the same over
// .dvsignore/.ignore.
type Backend interface {
	// Root returns the absolute workspace root.
	Root() string

	// Normalize converts an absolute path (or one relative to the current
	// working directory) into a repo-relative path.
	Normalize(path string) (string, error)

	// AddIgnore appends pattern to the backend's ignore file (creating it
	// if necessary), unless an identical pattern is already present.
	AddIgnore(pattern string) error

	// IsIgnored reports whether repoRelative matches the backend's ignore
	// rules.
	IsIgnored(repoRelative string) (bool, error)

	// CurrentBranch returns the active branch name, or "" if the backend
	// has no branch concept (DvsBackend) or none is checked out.
	CurrentBranch() (string, error)

	// Type identifies the backend kind for diagnostics.
	Type() Type
}

// Discover walks upward from dir looking first for a Git workspace root,
// then a DVS-only one, per spec §4.3: "Git is preferred even if DVS markers
// exist below it." Returns dvserr-classed NotInWorkspace if neither is
// found before reaching the filesystem root.
func Discover(dir string) (Backend, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	gitRoot := findUpward(abs, isGitMarker)
	dvsRoot := findUpward(abs, isDvsMarker)

	switch {
	case gitRoot != "":
		return newGitBackend(gitRoot), nil
	case dvsRoot != "":
		return newDvsBackend(dvsRoot), nil
	default:
		return nil, errNotInWorkspace(abs)
	}
}

func findUpward(start string, marker func(string) bool) string {
	dir := start
	for {
		if marker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func isGitMarker(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func isDvsMarker(dir string) bool {
	if _, _, err := config.Discover(dir); err == nil {
		return true
	}
	info, err := os.Stat(filepath.Join(dir, ".dvs"))
	return err == nil && info.IsDir()
}

func normalizeUnder(root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
