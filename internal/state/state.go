// Package state implements the reflog and snapshot store backing rollback
// (spec §3 WorkspaceState/ReflogEntry, §4.10, §6 reflog storage).
package state

import (
	"time"

	"github.com/a2-ai/dvs/internal/canonjson"
	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/manifest"
	"github.com/a2-ai/dvs/internal/metadata"
	"github.com/a2-ai/dvs/internal/oid"
)

// FileState is one tracked path's recorded metadata and the format it was
// serialized in, as captured in a WorkspaceState.
type FileState struct {
	Metadata metadata.Metadata `json:"metadata"`
	Format   metadata.Format   `json:"format"`
}

// WorkspaceState is a point-in-time record of every tracked path's metadata,
// plus an optional manifest snapshot, sufficient to restore a prior
// workspace state (spec §3).
type WorkspaceState struct {
	Files    map[string]FileState `json:"files"`
	Manifest *manifest.Manifest   `json:"manifest,omitempty"`
}

// New returns an empty WorkspaceState.
func New() *WorkspaceState {
	return &WorkspaceState{Files: make(map[string]FileState)}
}

// SID computes the snapshot id: the lowercase-hex BLAKE3 digest of the
// state's canonical JSON serialization (spec §3, §6).
func (s *WorkspaceState) SID() (string, error) {
	b, err := canonjson.Marshal(s)
	if err != nil {
		return "", err
	}
	hasher, err := hash.NewHasher(oid.Blake3)
	if err != nil {
		return "", err
	}
	if _, err := hasher.Update(b); err != nil {
		return "", err
	}
	return hasher.Finalize(), nil
}

// ReflogEntry is one record in the append-only reflog.
type ReflogEntry struct {
	Timestamp     time.Time `json:"ts"`
	Actor         string    `json:"actor"`
	Op            string    `json:"op"`
	Message       string    `json:"message,omitempty"`
	OldSID        string    `json:"old_sid"`
	NewSID        string    `json:"new_sid"`
	AffectedPaths []string  `json:"affected_paths,omitempty"`
}

// ShortSID truncates a sid to n characters for log-friendly display,
// parity with git's abbreviated sha display. Used where a full 64-hex-char
// sid would be noise, e.g. a rollback's generated reflog message.
func ShortSID(sid string, n int) string {
	if len(sid) <= n {
		return sid
	}
	return sid[:n]
}
