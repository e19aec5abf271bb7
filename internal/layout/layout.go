// Package layout maps a DVS repo root to the concrete paths every other
// package reads and writes, the way the teacher's storage/paths.go pathMapper
// centralizes the registry's blob/repository path layout in one place.
//
// Layout (relative to repo root):
//
//	dvs.{toml|yaml|json}          repo config (tracked)
//	dvs.lock                      manifest (tracked)
//	.dvs/config.toml               local config (not tracked)
//	.dvs/cache/objects/<algo>/<xy>/<rest>   local object cache
//	.dvs/state/snapshots/<sid>.json         workspace-state snapshots
//	.dvs/state/materialized.json             last materialize() result
//	.dvs/refs/HEAD                 current snapshot id
//	.dvs/logs/refs/HEAD            append-only reflog (JSONL)
package layout

import (
	"os"
	"path/filepath"
)

// Layout resolves every DVS-managed path under a single repo root.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root.
func New(root string) *Layout { return &Layout{Root: root} }

func (l *Layout) join(parts ...string) string {
	return filepath.Join(append([]string{l.Root}, parts...)...)
}

// ManifestPath returns the path to dvs.lock.
func (l *Layout) ManifestPath() string { return l.join("dvs.lock") }

// DvsDir returns the .dvs control directory root.
func (l *Layout) DvsDir() string { return l.join(".dvs") }

// LocalConfigPath returns the path to .dvs/config.toml.
func (l *Layout) LocalConfigPath() string { return l.join(".dvs", "config.toml") }

// CacheDir returns the local object cache root, .dvs/cache/objects.
func (l *Layout) CacheDir() string { return l.join(".dvs", "cache", "objects") }

// StateDir returns .dvs/state.
func (l *Layout) StateDir() string { return l.join(".dvs", "state") }

// SnapshotsDir returns .dvs/state/snapshots.
func (l *Layout) SnapshotsDir() string { return l.join(".dvs", "state", "snapshots") }

// SnapshotPath returns the path for the snapshot with the given sid.
func (l *Layout) SnapshotPath(sid string) string {
	return l.join(".dvs", "state", "snapshots", sid+".json")
}

// MaterializedStatePath returns .dvs/state/materialized.json.
func (l *Layout) MaterializedStatePath() string {
	return l.join(".dvs", "state", "materialized.json")
}

// HeadPath returns .dvs/refs/HEAD.
func (l *Layout) HeadPath() string { return l.join(".dvs", "refs", "HEAD") }

// ReflogPath returns .dvs/logs/refs/HEAD.
func (l *Layout) ReflogPath() string { return l.join(".dvs", "logs", "refs", "HEAD") }

// EnsureDirs creates every directory this layout needs (idempotent),
// leaving file creation to the components that own those files.
func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{
		l.CacheDir(),
		l.SnapshotsDir(),
		filepath.Dir(l.HeadPath()),
		filepath.Dir(l.ReflogPath()),
	} {
		if err := os.MkdirAll(dir, 0o770); err != nil {
			return err
		}
	}
	return nil
}
