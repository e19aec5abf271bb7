// Package testkit provides workspace-snapshot and object-store conformance
// helpers for exercising DVS implementations in tests, the way the
// teacher's storage/driver/testsuites and conformance.go exercise any
// storagedriver.StorageDriver implementation against a shared suite.
package testkit

import (
	"fmt"
	"sort"

	"github.com/a2-ai/dvs/internal/ops"
)

// WorkspaceSnapshot is a comparable, presentation-level capture of every
// tracked path's status at a point in time, independent of map iteration
// order, for use in before/after test assertions.
type WorkspaceSnapshot struct {
	Paths map[string]PathSnapshot
}

// PathSnapshot is one tracked path's comparable fields from a StatusEntry.
type PathSnapshot struct {
	Outcome ops.Outcome
	Size    uint64
	SavedBy string
}

// Snapshot captures the current status of every tracked path in ws.
func Snapshot(ws *ops.Workspace) (WorkspaceSnapshot, error) {
	entries, err := ops.Status(ws, nil)
	if err != nil {
		return WorkspaceSnapshot{}, fmt.Errorf("testkit: snapshot: %w", err)
	}
	snap := WorkspaceSnapshot{Paths: make(map[string]PathSnapshot, len(entries))}
	for _, e := range entries {
		snap.Paths[e.Path] = PathSnapshot{Outcome: e.Outcome, Size: e.Size, SavedBy: e.SavedBy}
	}
	return snap, nil
}

// Diff compares two snapshots and returns a human-readable list of
// differences, ordered by path, for use in test failure messages. An empty
// result means the snapshots are equivalent.
func Diff(before, after WorkspaceSnapshot) []string {
	paths := make(map[string]struct{})
	for p := range before.Paths {
		paths[p] = struct{}{}
	}
	for p := range after.Paths {
		paths[p] = struct{}{}
	}

	var diffs []string
	for p := range paths {
		b, inBefore := before.Paths[p]
		a, inAfter := after.Paths[p]
		switch {
		case !inBefore:
			diffs = append(diffs, fmt.Sprintf("%s: added (%s)", p, a.Outcome))
		case !inAfter:
			diffs = append(diffs, fmt.Sprintf("%s: removed (was %s)", p, b.Outcome))
		case a != b:
			diffs = append(diffs, fmt.Sprintf("%s: %+v -> %+v", p, b, a))
		}
	}
	sort.Strings(diffs)
	return diffs
}
