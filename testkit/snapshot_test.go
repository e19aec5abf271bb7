package testkit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/a2-ai/dvs/internal/ops"
)

func newTestWorkspace(t *testing.T) (*ops.Workspace, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o770); err != nil {
		t.Fatal(err)
	}
	storageDir := filepath.Join(root, "external-storage")
	if err := ops.Init(root, ops.InitOptions{StorageDir: storageDir}); err != nil {
		t.Fatal(err)
	}
	ws, err := ops.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	return ws, root
}

func TestDiffReportsOutcomeChangeAfterUnsyncedEdit(t *testing.T) {
	ws, root := newTestWorkspace(t)
	dataPath := filepath.Join(root, "sample.csv")
	if err := os.WriteFile(dataPath, []byte("v1\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	if _, err := ops.Add(context.Background(), ws, []string{dataPath}, ops.AddOptions{}); err != nil {
		t.Fatal(err)
	}

	before, err := Snapshot(ws)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(dataPath, []byte("v2\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	after, err := Snapshot(ws)
	if err != nil {
		t.Fatal(err)
	}

	diffs := Diff(before, after)
	if len(diffs) != 1 {
		t.Fatalf("Diff() = %v, want exactly one changed path", diffs)
	}
}

func TestDiffIsEmptyForIdenticalSnapshots(t *testing.T) {
	ws, root := newTestWorkspace(t)
	dataPath := filepath.Join(root, "sample.csv")
	if err := os.WriteFile(dataPath, []byte("stable\n"), 0o640); err != nil {
		t.Fatal(err)
	}
	if _, err := ops.Add(context.Background(), ws, []string{dataPath}, ops.AddOptions{}); err != nil {
		t.Fatal(err)
	}

	before, err := Snapshot(ws)
	if err != nil {
		t.Fatal(err)
	}
	after, err := Snapshot(ws)
	if err != nil {
		t.Fatal(err)
	}
	if diffs := Diff(before, after); len(diffs) != 0 {
		t.Fatalf("Diff() = %v, want no differences", diffs)
	}
}
