// Package server implements the DVS HTTP CAS server (spec §4.11): a small
// object store exposed over HTTP, mirroring the teacher's
// configuration.Configuration + registry/handlers.App split of "declarative
// config struct" and "app wired from it".
package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Permission is a bit in an API key's permission set, spec §4.11 "Auth":
// a permission set is a subset of {Read, Write, Delete, Admin}; Admin
// implies all.
type Permission uint8

const (
	PermissionRead Permission = 1 << iota
	PermissionWrite
	PermissionDelete
	PermissionAdmin

	permissionAll = PermissionRead | PermissionWrite | PermissionDelete | PermissionAdmin
)

// Has reports whether p grants want, treating Admin as granting every
// other permission.
func (p Permission) Has(want Permission) bool {
	if p&PermissionAdmin != 0 {
		return true
	}
	return p&want == want
}

// parsePermissions turns the config's string list ("read", "write",
// "delete", "admin") into a Permission bitmask.
func parsePermissions(names []string) (Permission, error) {
	var p Permission
	for _, n := range names {
		switch n {
		case "read":
			p |= PermissionRead
		case "write":
			p |= PermissionWrite
		case "delete":
			p |= PermissionDelete
		case "admin":
			p |= permissionAll
		default:
			return 0, fmt.Errorf("server: unknown permission %q", n)
		}
	}
	return p, nil
}

// APIKey is one entry of the auth table: a bearer token mapped to a
// permission set.
type APIKey struct {
	Token       string   `yaml:"token"`
	Permissions []string `yaml:"permissions"`
}

// AuthConfig enables or disables bearer-token auth entirely; when Enabled
// is false every request is treated as having Admin permission, per the
// teacher's Auth.Type() == "" meaning "no access controller configured".
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	Keys    []APIKey `yaml:"keys"`
}

// CORSConfig mirrors gorilla/handlers.CORS's per-origin allowlist.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config is the HTTP CAS server's declarative configuration, loaded from a
// YAML file the way the teacher loads configuration.Configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// Root is the filesystem root of the object store, laid out
	// identically to the client cache/external store (spec §4.11
	// "Storage layout").
	Root string `yaml:"root"`

	// MaxUploadSize bounds PUT request bodies; 0 means unbounded.
	MaxUploadSize int64 `yaml:"max_upload_size"`

	Auth AuthConfig `yaml:"auth"`
	CORS CORSConfig `yaml:"cors"`
}

// DefaultConfig returns a Config with reasonable defaults: listen on
// :8080, auth disabled, no upload cap.
func DefaultConfig() Config {
	return Config{Addr: ":8080"}
}

// LoadConfig reads and parses a YAML server config file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("server: read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("server: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// keyTable resolves Authorization headers to permission sets. It is built
// once at startup from AuthConfig and is immutable thereafter (spec §5
// "the API-key table is immutable after load").
type keyTable struct {
	byToken map[string]Permission
}

func newKeyTable(cfg AuthConfig) (*keyTable, error) {
	kt := &keyTable{byToken: make(map[string]Permission, len(cfg.Keys))}
	for _, k := range cfg.Keys {
		perm, err := parsePermissions(k.Permissions)
		if err != nil {
			return nil, err
		}
		kt.byToken[k.Token] = perm
	}
	return kt, nil
}

func (kt *keyTable) lookup(token string) (Permission, bool) {
	p, ok := kt.byToken[token]
	return p, ok
}
