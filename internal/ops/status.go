package ops

import (
	"os"
	"path/filepath"

	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/metadata"
)

// StatusEntry is one tracked path's presentation-ready status, per spec
// §4.7.
type StatusEntry struct {
	Path    string
	Outcome Outcome
	Size    uint64
	AddTime string
	SavedBy string
	Message string
	Err     error
}

// Status is a pure read: it never mutates the working tree, metadata,
// manifest, or reflog (spec §4.7). If paths is empty, every tracked file is
// reported.
func Status(ws *Workspace, paths []string) ([]StatusEntry, error) {
	if len(paths) == 0 {
		tracked, err := TrackedPaths(ws)
		if err != nil {
			return nil, err
		}
		paths = tracked
	}

	entries := make([]StatusEntry, 0, len(paths))
	for _, rel := range paths {
		entries = append(entries, statusOne(ws, rel))
	}
	return entries, nil
}

func statusOne(ws *Workspace, rel string) StatusEntry {
	dataPath := filepath.Join(ws.Layout.Root, filepath.FromSlash(rel))

	m, _, _, err := metadata.Load(dataPath)
	if err != nil {
		return StatusEntry{Path: rel, Outcome: OutcomeError, Err: dvserr.Wrap(dvserr.KindMetadataParseError, rel, err)}
	}

	se := StatusEntry{
		Path:    rel,
		Size:    m.Size,
		AddTime: m.AddTimeRFC3339(),
		SavedBy: m.SavedBy,
		Message: m.Message,
	}

	if _, err := os.Stat(dataPath); err != nil {
		se.Outcome = OutcomeAbsent
		return se
	}

	digest, err := hash.HashFile(dataPath, m.EffectiveHashAlgo())
	if err != nil {
		se.Outcome = OutcomeError
		se.Err = dvserr.Wrap(dvserr.KindHashError, rel, err)
		return se
	}
	if digest == m.Checksum {
		se.Outcome = OutcomeCurrent
	} else {
		se.Outcome = OutcomeUnsynced
	}
	return se
}
