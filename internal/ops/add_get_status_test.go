package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddThenPresentOnRepeat(t *testing.T) {
	ws, root := newTestWorkspace(t)
	dataPath := writeFile(t, root, "data/sample.csv", "a,b,c\n1,2,3\n")

	results, err := Add(context.Background(), ws, []string{dataPath}, AddOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, OutcomeCopied, results[0].Outcome)

	_, err = os.Stat(dataPath + ".dvs.toml")
	require.NoError(t, err)

	results, err = Add(context.Background(), ws, []string{dataPath}, AddOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, OutcomePresent, results[0].Outcome)
}

func TestAddRejectsDirectory(t *testing.T) {
	ws, root := newTestWorkspace(t)
	dir := filepath.Join(root, "adir")
	require.NoError(t, os.Mkdir(dir, 0o770))

	results, err := Add(context.Background(), ws, []string{dir}, AddOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, OutcomeError, results[0].Outcome)
}

func TestGetRestoresDeletedFile(t *testing.T) {
	ws, root := newTestWorkspace(t)
	dataPath := writeFile(t, root, "data/sample.csv", "hello dvs\n")

	_, err := Add(context.Background(), ws, []string{dataPath}, AddOptions{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(dataPath))

	results, err := Get(context.Background(), ws, []string{dataPath})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, OutcomeCopied, results[0].Outcome)

	b, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	require.Equal(t, "hello dvs\n", string(b))
}

func TestGetIsPresentWhenFileAlreadyCurrent(t *testing.T) {
	ws, root := newTestWorkspace(t)
	dataPath := writeFile(t, root, "data/sample.csv", "hello dvs\n")

	_, err := Add(context.Background(), ws, []string{dataPath}, AddOptions{})
	require.NoError(t, err)

	results, err := Get(context.Background(), ws, []string{dataPath})
	require.NoError(t, err)
	require.Equal(t, OutcomePresent, results[0].Outcome)
}

func TestStatusReportsCurrentAbsentAndUnsynced(t *testing.T) {
	ws, root := newTestWorkspace(t)
	current := writeFile(t, root, "data/current.csv", "v1\n")
	absent := writeFile(t, root, "data/absent.csv", "v1\n")
	unsynced := writeFile(t, root, "data/unsynced.csv", "v1\n")

	_, err := Add(context.Background(), ws, []string{current, absent, unsynced}, AddOptions{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(absent))
	require.NoError(t, os.WriteFile(unsynced, []byte("changed\n"), 0o640))

	entries, err := Status(ws, nil)
	require.NoError(t, err)

	byPath := make(map[string]StatusEntry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}
	require.Equal(t, OutcomeCurrent, byPath["data/current.csv"].Outcome)
	require.Equal(t, OutcomeAbsent, byPath["data/absent.csv"].Outcome)
	require.Equal(t, OutcomeUnsynced, byPath["data/unsynced.csv"].Outcome)
}
