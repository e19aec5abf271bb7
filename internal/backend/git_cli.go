package backend

import (
	"os/exec"
	"strings"
)

// currentBranchCLI shells out to `git rev-parse --abbrev-ref HEAD`, giving
// the same answer as the go-git-based implementation but via the system
// git binary, selected by DVS_GIT_BACKEND=cli (spec §6 Environment).
func currentBranchCLI(root string) (string, error) {
	cmd := exec.Command("git", "-C", root, "rev-parse", "--abbrev-ref", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "", nil
	}
	branch := strings.TrimSpace(string(out))
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}
