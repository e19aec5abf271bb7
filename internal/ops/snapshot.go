package ops

import (
	"path/filepath"
	"time"

	"github.com/a2-ai/dvs/internal/manifest"
	"github.com/a2-ai/dvs/internal/metadata"
	"github.com/a2-ai/dvs/internal/state"
)

// buildWorkspaceState captures the current metadata for every tracked path
// plus a copy of mf, per spec §3 WorkspaceState.
func buildWorkspaceState(ws *Workspace, mf *manifest.Manifest) (*state.WorkspaceState, error) {
	rels, err := TrackedPaths(ws)
	if err != nil {
		return nil, err
	}

	s := state.New()
	for _, rel := range rels {
		dataPath := filepath.Join(ws.Backend.Root(), filepath.FromSlash(rel))
		m, _, format, err := metadata.Load(dataPath)
		if err != nil {
			continue
		}
		s.Files[rel] = state.FileState{Metadata: *m, Format: format}
	}
	if mf != nil {
		mfCopy := *mf
		mfCopy.Entries = append([]manifest.Entry(nil), mf.Entries...)
		s.Manifest = &mfCopy
	}
	return s, nil
}

// snapshotAndLog captures the post-operation workspace state, saves it, and
// appends a reflog entry recording the transition from the prior HEAD,
// per spec §4.5 step 6 / §4.10.
func snapshotAndLog(ws *Workspace, mf *manifest.Manifest, op, message, actor string, affected []string) error {
	oldSID, err := ws.State.Head()
	if err != nil {
		return err
	}

	s, err := buildWorkspaceState(ws, mf)
	if err != nil {
		return err
	}
	newSID, err := ws.State.SaveSnapshot(s)
	if err != nil {
		return err
	}
	if newSID == oldSID {
		// State did not actually change (e.g. add() touched only
		// already-Present files); nothing to log.
		return nil
	}

	if err := ws.State.SetHead(newSID); err != nil {
		return err
	}
	return ws.State.AppendReflog(state.ReflogEntry{
		Timestamp:     time.Now().UTC(),
		Actor:         actor,
		Op:            op,
		Message:       message,
		OldSID:        oldSID,
		NewSID:        newSID,
		AffectedPaths: affected,
	})
}
