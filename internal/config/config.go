// Package config implements the DVS repo configuration (spec §3 Config,
// §6 "Repo configuration file"): the tracked dvs.toml/yaml/json that fixes
// storage_dir, hash_algo, and metadata_format for a workspace.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/a2-ai/dvs/internal/oid"
)

// Format is a serialization format for the repo config file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// MetadataFormat selects the per-file metadata sidecar format.
type MetadataFormat string

const (
	MetadataJSON MetadataFormat = "json"
	MetadataTOML MetadataFormat = "toml"
)

// GeneratedBy records the tool/version/commit triple that wrote a config,
// mirroring the teacher's version package triple (Package/Version/Revision).
type GeneratedBy struct {
	Tool    string `toml:"tool" yaml:"tool" json:"tool"`
	Version string `toml:"version" yaml:"version" json:"version"`
	Commit  string `toml:"commit" yaml:"commit" json:"commit"`
}

// Config is the repo-level configuration described by spec §3. Exactly one
// exists per workspace, at the workspace root.
type Config struct {
	StorageDir     string          `toml:"storage_dir" yaml:"storage_dir" json:"storage_dir"`
	Permissions    *uint32         `toml:"permissions,omitempty" yaml:"permissions,omitempty" json:"permissions,omitempty"`
	Group          string          `toml:"group,omitempty" yaml:"group,omitempty" json:"group,omitempty"`
	HashAlgo       oid.Algo        `toml:"hash_algo,omitempty" yaml:"hash_algo,omitempty" json:"hash_algo,omitempty"`
	MetadataFormat MetadataFormat  `toml:"metadata_format,omitempty" yaml:"metadata_format,omitempty" json:"metadata_format,omitempty"`
	GeneratedBy    *GeneratedBy    `toml:"generated_by,omitempty" yaml:"generated_by,omitempty" json:"generated_by,omitempty"`
}

// EffectiveHashAlgo returns the configured hash algorithm, defaulting to
// BLAKE3 when unset, per spec §3.
func (c *Config) EffectiveHashAlgo() oid.Algo {
	if c.HashAlgo == "" {
		return oid.Blake3
	}
	return c.HashAlgo
}

// EffectiveMetadataFormat returns the configured metadata format, defaulting
// to TOML per spec §2 item 4.
func (c *Config) EffectiveMetadataFormat() MetadataFormat {
	if c.MetadataFormat == "" {
		return MetadataTOML
	}
	return c.MetadataFormat
}

// FileNames, in the order they are searched for by Discover, matching
// spec §6 ("Filename from {dvs.toml, dvs.yaml, dvs.json}").
var FileNames = []struct {
	Name   string
	Format Format
}{
	{"dvs.toml", FormatTOML},
	{"dvs.yaml", FormatYAML},
	{"dvs.json", FormatJSON},
}

// Discover looks for a repo config file directly inside root, returning its
// path and format. Returns ("", "", os.ErrNotExist) if none is present.
func Discover(root string) (path string, format Format, err error) {
	for _, fn := range FileNames {
		p := filepath.Join(root, fn.Name)
		if _, statErr := os.Stat(p); statErr == nil {
			return p, fn.Format, nil
		}
	}
	return "", "", os.ErrNotExist
}

// Load reads and parses the config file at path using format.
func Load(path string, format Format) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s as toml: %w", path, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s as yaml: %w", path, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s as json: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
	return &c, nil
}

// Marshal serializes c in format.
func Marshal(c *Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, fmt.Errorf("config: encode toml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		b, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("config: encode yaml: %w", err)
		}
		return b, nil
	case FormatJSON:
		b, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("config: encode json: %w", err)
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
}

// Equal reports whether two configs agree on the semantic fields that
// define how an existing workspace is interpreted (spec §4.4 step 2):
// storage_dir and hash_algo. Differences in permissions/group/metadata
// format/generated_by do not constitute a mismatch.
func (c *Config) Equal(other *Config) bool {
	return filepath.Clean(c.StorageDir) == filepath.Clean(other.StorageDir) &&
		c.EffectiveHashAlgo() == other.EffectiveHashAlgo()
}

// WriteAtomic serializes c in format and writes it to path via
// temp-then-rename, matching the teacher's atomic-config-write idiom.
func WriteAtomic(path string, c *Config, format Format) error {
	b, err := Marshal(c, format)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o640); err != nil {
		return fmt.Errorf("config: write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: rename %s: %w", path, err)
	}
	return nil
}
