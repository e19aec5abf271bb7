package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestWorkspace creates a fresh workspace rooted at a temp directory,
// marked as a Git backend (an empty .git/ directory is enough for
// backend.Discover; no real repository is needed for these tests) and
// initialized with a local external storage directory.
func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o770))

	storageDir := filepath.Join(root, "external-storage")
	require.NoError(t, Init(root, InitOptions{StorageDir: storageDir}))

	ws, err := Open(root)
	require.NoError(t, err)
	return ws, root
}

func writeFile(t *testing.T, root, rel, contents string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o770))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o640))
	return path
}
