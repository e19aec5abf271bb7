// Package metadata implements the per-file DVS descriptor (spec §3
// Metadata, §6): the <name>.dvs / <name>.dvs.toml sidecar that records which
// object a working-tree file corresponds to.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/a2-ai/dvs/internal/oid"
)

// Format selects the metadata sidecar's serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// JSONSuffix and TOMLSuffix are the companion-file suffixes for a tracked
// data file named by its base path.
const (
	JSONSuffix = ".dvs"
	TOMLSuffix = ".dvs.toml"
)

// Metadata is the per-file descriptor. The checksum field keeps its
// historical "blake3_checksum" wire name regardless of algorithm, per
// spec §6, for backward compatibility with older DVS metadata files.
type Metadata struct {
	Checksum string   `json:"blake3_checksum" toml:"blake3_checksum"`
	HashAlgo oid.Algo  `json:"hash_algo,omitempty" toml:"hash_algo,omitempty"`
	Size     uint64   `json:"size" toml:"size"`
	AddTime  time.Time `json:"add_time" toml:"add_time"`
	Message  string   `json:"message" toml:"message"`
	SavedBy  string   `json:"saved_by" toml:"saved_by"`
}

// EffectiveHashAlgo returns the algorithm the checksum was computed with,
// defaulting to BLAKE3 when the field is omitted for backward compatibility
// (spec §6).
func (m *Metadata) EffectiveHashAlgo() oid.Algo {
	if m.HashAlgo == "" {
		return oid.Blake3
	}
	return m.HashAlgo
}

// Oid returns the object identifier this metadata points to.
func (m *Metadata) Oid() (oid.Oid, error) {
	return oid.New(m.EffectiveHashAlgo(), m.Checksum)
}

// AddTimeRFC3339 renders add_time as RFC-3339 UTC with millisecond
// precision and a literal "Z" suffix, per spec §6.
func (m *Metadata) AddTimeRFC3339() string {
	return m.AddTime.UTC().Format("2006-01-02T15:04:05.000Z")
}

// PathFor returns the two candidate sidecar paths for dataPath: the JSON
// path and the TOML path. Callers use Resolve to pick the one that exists.
func PathFor(dataPath string) (jsonPath, tomlPath string) {
	return dataPath + JSONSuffix, dataPath + TOMLSuffix
}

// Resolve returns the sidecar path and format that exists for dataPath.
// .dvs.toml takes precedence when both exist, per spec §3.
func Resolve(dataPath string) (path string, format Format, ok bool) {
	jsonPath, tomlPath := PathFor(dataPath)
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, FormatTOML, true
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, FormatJSON, true
	}
	return "", "", false
}

// Load reads and parses the metadata sidecar for dataPath.
func Load(dataPath string) (*Metadata, string, Format, error) {
	path, format, ok := Resolve(dataPath)
	if !ok {
		return nil, "", "", os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, path, format, fmt.Errorf("metadata: read %s: %w", path, err)
	}

	var m Metadata
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, path, format, fmt.Errorf("metadata: parse %s: %w", path, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(b, &m); err != nil {
			return nil, path, format, fmt.Errorf("metadata: parse %s: %w", path, err)
		}
	}
	return &m, path, format, nil
}

// Marshal serializes m in format. JSON output is pretty-printed with a
// trailing newline, per spec §6.
func Marshal(m *Metadata, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		type wire struct {
			Checksum string `json:"blake3_checksum"`
			HashAlgo string `json:"hash_algo,omitempty"`
			Size     uint64 `json:"size"`
			AddTime  string `json:"add_time"`
			Message  string `json:"message"`
			SavedBy  string `json:"saved_by"`
		}
		w := wire{
			Checksum: m.Checksum,
			HashAlgo: string(m.HashAlgo),
			Size:     m.Size,
			AddTime:  m.AddTimeRFC3339(),
			Message:  m.Message,
			SavedBy:  m.SavedBy,
		}
		b, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("metadata: encode json: %w", err)
		}
		return append(b, '\n'), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(m); err != nil {
			return nil, fmt.Errorf("metadata: encode toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("metadata: unknown format %q", format)
	}
}

// WriteAtomic writes m as the sidecar for dataPath in format, via
// temp-then-rename, and removes the alternate-format sidecar if it exists
// (spec §4.5 step 4b: "If switching formats, delete the alternate-format
// file").
func WriteAtomic(dataPath string, m *Metadata, format Format) (path string, err error) {
	jsonPath, tomlPath := PathFor(dataPath)
	path = jsonPath
	altPath := tomlPath
	if format == FormatTOML {
		path, altPath = tomlPath, jsonPath
	}

	b, err := Marshal(m, format)
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o640); err != nil {
		return "", fmt.Errorf("metadata: write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("metadata: rename %s: %w", path, err)
	}

	if _, err := os.Stat(altPath); err == nil {
		_ = os.Remove(altPath)
	}
	return path, nil
}

// Remove deletes both possible sidecar paths for dataPath, ignoring
// not-exist errors.
func Remove(dataPath string) error {
	jsonPath, tomlPath := PathFor(dataPath)
	var firstErr error
	for _, p := range []string{jsonPath, tomlPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
