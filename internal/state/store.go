package state

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a2-ai/dvs/internal/canonjson"
	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/layout"
)

// Store reads and writes the reflog, HEAD ref, and snapshot files rooted at
// a Layout.
type Store struct {
	layout *layout.Layout
}

// NewStore returns a Store operating over l.
func NewStore(l *layout.Layout) *Store { return &Store{layout: l} }

// SaveSnapshot persists s at its content-addressed path and returns its sid.
// Writing is idempotent: saving the same state twice reuses the same file.
func (st *Store) SaveSnapshot(s *WorkspaceState) (string, error) {
	sid, err := s.SID()
	if err != nil {
		return "", fmt.Errorf("state: compute sid: %w", err)
	}
	path := st.layout.SnapshotPath(sid)
	if _, err := os.Stat(path); err == nil {
		return sid, nil
	}

	b, err := canonjson.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("state: encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(st.layout.SnapshotsDir(), 0o770); err != nil {
		return "", fmt.Errorf("state: mkdir snapshots: %w", err)
	}
	if err := os.WriteFile(tmp, b, 0o640); err != nil {
		return "", fmt.Errorf("state: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("state: rename snapshot: %w", err)
	}
	return sid, nil
}

// LoadSnapshot resolves sid (which may be a prefix, as long as it is
// unique among existing snapshot files) and returns the parsed state.
func (st *Store) LoadSnapshot(sid string) (*WorkspaceState, string, error) {
	full, err := st.ResolveSID(sid)
	if err != nil {
		return nil, "", err
	}
	b, err := os.ReadFile(st.layout.SnapshotPath(full))
	if err != nil {
		return nil, "", dvserr.Wrap(dvserr.KindSnapshotCorrupt, full, err)
	}
	var s WorkspaceState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, "", dvserr.Wrap(dvserr.KindSnapshotCorrupt, full, err)
	}
	return &s, full, nil
}

// ResolveSID finds the unique full sid matching the prefix sid among
// persisted snapshots, per spec §4.10 step 1 ("a prefix-unique sid").
// An exact match, even if also a prefix of others, wins outright.
func (st *Store) ResolveSID(sid string) (string, error) {
	entries, err := os.ReadDir(st.layout.SnapshotsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return "", dvserr.New(dvserr.KindUnknownState, fmt.Sprintf("no snapshot matches %q", sid))
		}
		return "", dvserr.Wrap(dvserr.KindUnknownState, sid, err)
	}

	var matches []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if name == sid {
			return name, nil
		}
		if strings.HasPrefix(name, sid) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", dvserr.New(dvserr.KindUnknownState, fmt.Sprintf("no snapshot matches %q", sid))
	case 1:
		return matches[0], nil
	default:
		return "", dvserr.New(dvserr.KindUnknownState, fmt.Sprintf("%q matches %d snapshots, not unique", sid, len(matches)))
	}
}

// Head returns the sid currently recorded at .dvs/refs/HEAD, or "" if the
// workspace has no history yet.
func (st *Store) Head() (string, error) {
	b, err := os.ReadFile(st.layout.HeadPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("state: read HEAD: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SetHead atomically updates .dvs/refs/HEAD to sid.
func (st *Store) SetHead(sid string) error {
	path := st.layout.HeadPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return fmt.Errorf("state: mkdir refs: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sid), 0o640); err != nil {
		return fmt.Errorf("state: write HEAD: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state: rename HEAD: %w", err)
	}
	return nil
}

// AppendReflog appends entry to .dvs/logs/refs/HEAD as one JSON line.
func (st *Store) AppendReflog(entry ReflogEntry) error {
	path := st.layout.ReflogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return fmt.Errorf("state: mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("state: open reflog: %w", err)
	}
	defer f.Close()

	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("state: encode reflog entry: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("state: append reflog: %w", err)
	}
	return nil
}

// ReadReflog returns reflog entries oldest-first. If limit > 0, only the
// most recent limit entries are returned (still oldest-first).
func (st *Store) ReadReflog(limit int) ([]ReflogEntry, error) {
	f, err := os.Open(st.layout.ReflogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: open reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e ReflogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, dvserr.Wrap(dvserr.KindSnapshotCorrupt, st.layout.ReflogPath(), err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("state: read reflog: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
