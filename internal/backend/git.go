package backend

import (
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// GitBackend anchors a workspace at a directory containing .git, enforcing
// gitignore-style patterns via .gitignore.
type GitBackend struct {
	root   string
	ignore *ignoreFile
}

func newGitBackend(root string) *GitBackend {
	return &GitBackend{root: root, ignore: newIgnoreFile(filepath.Join(root, ".gitignore"))}
}

func (b *GitBackend) Root() string { return b.root }

func (b *GitBackend) Type() Type { return TypeGit }

func (b *GitBackend) Normalize(path string) (string, error) {
	return normalizeUnder(b.root, path)
}

func (b *GitBackend) AddIgnore(pattern string) error {
	return b.ignore.AddPattern(pattern)
}

func (b *GitBackend) IsIgnored(repoRelative string) (bool, error) {
	return b.ignore.IsIgnored(repoRelative)
}

// CurrentBranch resolves HEAD via go-git. If DVS_GIT_BACKEND=cli is set,
// the CLI-based invoker is used instead (spec §6 Environment); both report
// identical results for a checked-out branch.
func (b *GitBackend) CurrentBranch() (string, error) {
	if os.Getenv("DVS_GIT_BACKEND") == "cli" {
		return currentBranchCLI(b.root)
	}

	repo, err := git.PlainOpen(b.root)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		// Detached HEAD or unborn branch: no named branch to report.
		return "", nil
	}
	return head.Name().Short(), nil
}
