package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Auth holds the bearer token used to authorize requests to the remote CAS.
type Auth struct {
	Token string `toml:"token,omitempty"`
}

// Cache holds local-cache tuning, not tracked in source control.
type Cache struct {
	MaxSize uint64 `toml:"max_size,omitempty"`
}

// LocalConfig is the untracked, machine-local configuration living at
// .dvs/config.toml (spec §3 LocalConfig, §6).
type LocalConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Auth    Auth   `toml:"auth,omitempty"`
	Cache   Cache  `toml:"cache,omitempty"`
}

// LoadLocal reads .dvs/config.toml at path. A missing file is not an error;
// it returns a zero-value LocalConfig so callers can treat "no local
// config" and "empty local config" identically.
func LoadLocal(path string) (*LocalConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LocalConfig{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var lc LocalConfig
	if err := toml.Unmarshal(b, &lc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &lc, nil
}

// WriteLocalAtomic writes lc to path via temp-then-rename.
func WriteLocalAtomic(path string, lc *LocalConfig) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(lc); err != nil {
		return fmt.Errorf("config: encode local config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: rename %s: %w", path, err)
	}
	return nil
}
