package backend

import (
	"os"
	"path/filepath"
)

// DvsBackend anchors a workspace at a directory containing a repo config
// file or a .dvs/ directory, without any source-control system present. It
// has no branch concept and enforces .dvsignore (falling back to .ignore).
type DvsBackend struct {
	root   string
	ignore *ignoreFile
}

func newDvsBackend(root string) *DvsBackend {
	path := filepath.Join(root, ".dvsignore")
	if !fileExists(path) && fileExists(filepath.Join(root, ".ignore")) {
		path = filepath.Join(root, ".ignore")
	}
	return &DvsBackend{root: root, ignore: newIgnoreFile(path)}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (b *DvsBackend) Root() string { return b.root }

func (b *DvsBackend) Type() Type { return TypeDvs }

func (b *DvsBackend) Normalize(path string) (string, error) {
	return normalizeUnder(b.root, path)
}

func (b *DvsBackend) AddIgnore(pattern string) error {
	return b.ignore.AddPattern(pattern)
}

func (b *DvsBackend) IsIgnored(repoRelative string) (bool, error) {
	return b.ignore.IsIgnored(repoRelative)
}

func (b *DvsBackend) CurrentBranch() (string, error) {
	return "", nil
}
