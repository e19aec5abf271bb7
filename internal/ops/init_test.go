package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2-ai/dvs/internal/dvserr"
)

func TestInitCreatesConfigAndStorageDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o770))
	storageDir := filepath.Join(root, "store")

	require.NoError(t, Init(root, InitOptions{StorageDir: storageDir}))

	_, err := os.Stat(filepath.Join(root, "dvs.toml"))
	require.NoError(t, err)
	info, err := os.Stat(storageDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestInitIsIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o770))
	storageDir := filepath.Join(root, "store")

	require.NoError(t, Init(root, InitOptions{StorageDir: storageDir}))
	require.NoError(t, Init(root, InitOptions{StorageDir: storageDir}))
}

func TestInitRejectsConflictingConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o770))
	storageDir := filepath.Join(root, "store")

	require.NoError(t, Init(root, InitOptions{StorageDir: storageDir}))

	otherStorageDir := filepath.Join(root, "other-store")
	err := Init(root, InitOptions{StorageDir: otherStorageDir})
	require.Error(t, err)
	require.Equal(t, dvserr.KindConfigMismatch, dvserr.KindOf(err))
}
