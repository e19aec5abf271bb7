package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/manifest"
)

// MaterializedState is the persisted record of the last Materialize
// invocation's result, at .dvs/state/materialized.json (spec §4.9).
type MaterializedState struct {
	Entries map[string]string `json:"entries"` // path -> oid string
}

// Materialize copies cached objects into their working-tree locations as
// declared by the manifest, skipping entries already matching, per
// spec §4.9.
func Materialize(ctx context.Context, ws *Workspace) ([]Result, error) {
	mf, err := loadOrNewManifest(ws)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(mf.Entries))
	next := MaterializedState{Entries: make(map[string]string, len(mf.Entries))}

	for _, e := range mf.Entries {
		res := materializeOne(ctx, ws, e)
		results = append(results, res)
		if res.Outcome != OutcomeError {
			next.Entries[e.Path] = e.Oid
		}
	}

	if err := saveMaterializedState(ws, next); err != nil {
		return results, err
	}
	return results, nil
}

func materializeOne(ctx context.Context, ws *Workspace, e manifest.Entry) Result {
	dataPath := filepath.Join(ws.Layout.Root, filepath.FromSlash(e.Path))

	id, err := e.ParsedOid()
	if err != nil {
		return errResult(e.Path, dvserr.Wrap(dvserr.KindMetadataParseError, e.Path, err))
	}

	// Short-circuit: if the working-tree file already hashes to this oid,
	// skip the copy. materialized.json is written but not consulted here.
	if info, statErr := os.Stat(dataPath); statErr == nil && !info.IsDir() {
		if digest, herr := hash.HashFile(dataPath, id.Algo); herr == nil && digest == id.Hex {
			return Result{Path: e.Path, Outcome: OutcomePresent, Oid: e.Oid}
		}
	}

	has, err := ws.Cache.Has(ctx, id)
	if err != nil {
		return errResult(e.Path, err)
	}
	if !has {
		return errResult(e.Path, dvserr.New(dvserr.KindObjectMissing, e.Path))
	}

	if err := copyObjectTo(ctx, ws, id, dataPath, id.Algo); err != nil {
		return errResult(e.Path, err)
	}
	return Result{Path: e.Path, Outcome: OutcomeCopied, Oid: e.Oid}
}

func saveMaterializedState(ws *Workspace, s MaterializedState) error {
	path := ws.Layout.MaterializedStatePath()
	if err := os.MkdirAll(ws.Layout.StateDir(), 0o770); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o640); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
