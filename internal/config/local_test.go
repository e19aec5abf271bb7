package config

import (
	"path/filepath"
	"testing"
)

func TestLoadLocalMissingFileIsZeroValue(t *testing.T) {
	lc, err := LoadLocal(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if *lc != (LocalConfig{}) {
		t.Fatalf("LoadLocal of missing file = %+v, want zero value", lc)
	}
}

func TestWriteLocalAtomicThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	lc := &LocalConfig{
		BaseURL: "https://cas.example.com",
		Auth:    Auth{Token: "secret-token"},
		Cache:   Cache{MaxSize: 1 << 30},
	}

	if err := WriteLocalAtomic(path, lc); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadLocal(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *lc {
		t.Fatalf("LoadLocal = %+v, want %+v", loaded, lc)
	}
}
