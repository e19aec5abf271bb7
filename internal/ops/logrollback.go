package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/manifest"
	"github.com/a2-ai/dvs/internal/metadata"
	"github.com/a2-ai/dvs/internal/state"
)

// Log returns the reflog tail, oldest-first, limited to the most recent
// limit entries (0 means unlimited), per spec §4.10.
func Log(ws *Workspace, limit int) ([]state.ReflogEntry, error) {
	return ws.State.ReadReflog(limit)
}

// RollbackOptions configures Rollback, per spec §4.10.
type RollbackOptions struct {
	// Target is either a small non-negative reflog index counted from
	// newest (e.g. "0" = most recent), or a prefix-unique sid.
	Target      string
	Force       bool
	Materialize bool
	Actor       string
}

// RollbackReport summarizes what Rollback changed.
type RollbackReport struct {
	OldSID             string
	NewSID             string
	Restored           []string
	Removed            []string
	MaterializeResults []Result
}

// Rollback restores a prior WorkspaceState snapshot, per spec §4.10.
func Rollback(ctx context.Context, ws *Workspace, opts RollbackOptions) (RollbackReport, error) {
	targetSID, err := resolveRollbackTarget(ws, opts.Target)
	if err != nil {
		return RollbackReport{}, err
	}

	if !opts.Force {
		if err := refuseIfDirty(ws); err != nil {
			return RollbackReport{}, err
		}
	}

	target, fullSID, err := ws.State.LoadSnapshot(targetSID)
	if err != nil {
		return RollbackReport{}, err
	}

	oldSID, err := ws.State.Head()
	if err != nil {
		return RollbackReport{}, err
	}

	current, err := buildWorkspaceState(ws, nil)
	if err != nil {
		return RollbackReport{}, err
	}

	report := RollbackReport{OldSID: oldSID, NewSID: fullSID}

	// Remove metadata for paths present only in the current tracked set
	// (spec §4.10 step 4).
	for rel := range current.Files {
		if _, ok := target.Files[rel]; !ok {
			dataPath := filepath.Join(ws.Backend.Root(), filepath.FromSlash(rel))
			if err := metadata.Remove(dataPath); err != nil {
				return report, dvserr.Wrap(dvserr.KindIOError, rel, err)
			}
			report.Removed = append(report.Removed, rel)
		}
	}

	// Write back every path present in the target state, honouring its
	// recorded format (spec §4.10 step 4).
	for rel, fs := range target.Files {
		dataPath := filepath.Join(ws.Backend.Root(), filepath.FromSlash(rel))
		m := fs.Metadata
		if _, err := metadata.WriteAtomic(dataPath, &m, fs.Format); err != nil {
			return report, dvserr.Wrap(dvserr.KindIOError, rel, err)
		}
		report.Restored = append(report.Restored, rel)
	}

	// Update the manifest from the target state, or reconstruct it by
	// scanning metadata files if the snapshot carried none (spec §4.10
	// step 5).
	mf := target.Manifest
	if mf == nil {
		rebuilt, err := reconstructManifest(ws)
		if err != nil {
			return report, err
		}
		mf = rebuilt
	}
	if err := manifest.WriteAtomic(ws.Layout.ManifestPath(), mf); err != nil {
		return report, err
	}

	actor := opts.Actor
	if actor == "" {
		actor = currentActor()
	}
	if err := ws.State.SetHead(fullSID); err != nil {
		return report, err
	}
	if err := ws.State.AppendReflog(state.ReflogEntry{
		Timestamp:     time.Now().UTC(),
		Actor:         actor,
		Op:            "rollback",
		Message:       fmt.Sprintf("rollback to %s", state.ShortSID(fullSID, 12)),
		OldSID:        oldSID,
		NewSID:        fullSID,
		AffectedPaths: append(append([]string{}, report.Restored...), report.Removed...),
	}); err != nil {
		return report, err
	}

	if opts.Materialize {
		results, err := rollbackMaterialize(ctx, ws, mf)
		report.MaterializeResults = results
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

// resolveRollbackTarget interprets opts.Target as either a small
// non-negative reflog index from newest, or a prefix-unique sid
// (spec §4.10 step 1).
func resolveRollbackTarget(ws *Workspace, target string) (string, error) {
	if n, err := strconv.Atoi(target); err == nil && n >= 0 {
		entries, err := ws.State.ReadReflog(0)
		if err != nil {
			return "", err
		}
		idx := len(entries) - 1 - n
		if idx < 0 || idx >= len(entries) {
			return "", dvserr.New(dvserr.KindUnknownState, fmt.Sprintf("reflog index %d out of range", n))
		}
		return entries[idx].NewSID, nil
	}
	return ws.State.ResolveSID(target)
}

// refuseIfDirty reports DirtyWorktree if any tracked file is Unsynced,
// unless the caller forced the rollback (spec §4.10 step 2).
func refuseIfDirty(ws *Workspace) error {
	entries, err := Status(ws, nil)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Outcome == OutcomeUnsynced {
			return dvserr.New(dvserr.KindDirtyWorktree, e.Path)
		}
	}
	return nil
}

// reconstructManifest rebuilds a manifest by scanning tracked metadata
// files, used when a snapshot was taken before manifests were captured
// (spec §4.10 step 5).
func reconstructManifest(ws *Workspace) (*manifest.Manifest, error) {
	rels, err := TrackedPaths(ws)
	if err != nil {
		return nil, err
	}
	mf := manifest.New()
	for _, rel := range rels {
		dataPath := filepath.Join(ws.Backend.Root(), filepath.FromSlash(rel))
		m, _, _, err := metadata.Load(dataPath)
		if err != nil {
			continue
		}
		id, err := m.Oid()
		if err != nil {
			continue
		}
		mf.Upsert(manifest.Entry{
			Path:        rel,
			Oid:         id.String(),
			Bytes:       m.Size,
			Compression: manifest.CompressionNone,
			Remote:      manifest.DefaultRemote,
		})
	}
	return mf, nil
}

// rollbackMaterialize copies restored data files from the cache or
// external storage when they are absent or hash differently from the
// restored metadata; failures here are reported per-file but never fail
// the rollback itself (spec §4.10 step 7).
func rollbackMaterialize(ctx context.Context, ws *Workspace, mf *manifest.Manifest) ([]Result, error) {
	results := make([]Result, 0, len(mf.Entries))
	for _, e := range mf.Entries {
		res := materializeOne(ctx, ws, e)
		if res.ErrKind == dvserr.KindObjectMissing {
			if id, err := e.ParsedOid(); err == nil {
				if has, herr := ws.External.Has(ctx, id); herr == nil && has {
					dataPath := filepath.Join(ws.Layout.Root, filepath.FromSlash(e.Path))
					if err := copyObjectTo(ctx, ws, id, dataPath, id.Algo); err != nil {
						res = errResult(e.Path, err)
					} else {
						res = Result{Path: e.Path, Outcome: OutcomeCopied, Oid: e.Oid}
					}
				}
			}
		}
		results = append(results, res)
	}
	return results, nil
}
