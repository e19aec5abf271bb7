// Package manifest implements dvs.lock, the repo-wide path<->Oid mapping
// that is the source of truth for remote sync (spec §3 Manifest, §6).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/a2-ai/dvs/internal/oid"
)

// Compression names an optional encoding applied to stored object bytes.
// DVS itself never compresses objects today; the field exists so a future
// writer can, without a manifest schema migration.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionGzip Compression = "gzip"
	CompressionLZ4  Compression = "lz4"
)

// DefaultRemote is the remote name new entries are tagged with absent an
// explicit override.
const DefaultRemote = "origin"

// CurrentVersion is the manifest schema version this package writes.
const CurrentVersion = 1

// Entry maps one repo-relative path to the object that is its authoritative
// content.
type Entry struct {
	Path        string      `json:"path"`
	Oid         string      `json:"oid"`
	Bytes       uint64      `json:"bytes"`
	Compression Compression `json:"compression"`
	Remote      string      `json:"remote"`
}

// ParsedOid parses e.Oid into an oid.Oid.
func (e Entry) ParsedOid() (oid.Oid, error) {
	return oid.Parse(e.Oid)
}

// Manifest is the parsed form of dvs.lock.
type Manifest struct {
	Version int     `json:"version"`
	BaseURL string  `json:"base_url,omitempty"`
	Entries []Entry `json:"entries"`
}

// New returns an empty manifest at CurrentVersion.
func New() *Manifest {
	return &Manifest{Version: CurrentVersion}
}

// Load parses the manifest at path. A missing file is reported via
// os.IsNotExist on the returned error, letting callers distinguish
// "no manifest yet" from a parse failure.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	return &m, nil
}

// Find returns the entry for path, if any.
func (m *Manifest) Find(path string) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Upsert inserts or replaces the entry for e.Path, keeping Entries sorted by
// path (spec §3: "entries ordered by repo-relative path").
func (m *Manifest) Upsert(e Entry) {
	for i, existing := range m.Entries {
		if existing.Path == e.Path {
			m.Entries[i] = e
			m.sort()
			return
		}
	}
	m.Entries = append(m.Entries, e)
	m.sort()
}

// Remove deletes the entry for path, if present, reporting whether it was.
func (m *Manifest) Remove(path string) bool {
	for i, e := range m.Entries {
		if e.Path == path {
			m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Manifest) sort() {
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Path < m.Entries[j].Path })
}

// UniqueOids returns the distinct set of Oids referenced by the manifest,
// used by push/pull to avoid transferring the same object twice when
// multiple paths share content.
func (m *Manifest) UniqueOids() ([]oid.Oid, error) {
	seen := make(map[string]struct{}, len(m.Entries))
	var out []oid.Oid
	for _, e := range m.Entries {
		if _, ok := seen[e.Oid]; ok {
			continue
		}
		seen[e.Oid] = struct{}{}
		id, err := e.ParsedOid()
		if err != nil {
			return nil, fmt.Errorf("manifest: entry %s: %w", e.Path, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Marshal serializes m as pretty JSON with entries sorted by path.
func Marshal(m *Manifest) ([]byte, error) {
	m.sort()
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return append(b, '\n'), nil
}

// WriteAtomic serializes and writes m to path via temp-then-rename.
func WriteAtomic(path string, m *Manifest) error {
	b, err := Marshal(m)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o640); err != nil {
		return fmt.Errorf("manifest: write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("manifest: rename %s: %w", path, err)
	}
	return nil
}
