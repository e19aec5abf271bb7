package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/a2-ai/dvs/internal/oid"
)

func TestWriteAtomicThenLoadJSON(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "sample.csv")
	m := &Metadata{
		Checksum: "deadbeef",
		HashAlgo: oid.SHA256,
		Size:     42,
		AddTime:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Message:  "first add",
		SavedBy:  "alice",
	}

	path, err := WriteAtomic(dataPath, m, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if path != dataPath+JSONSuffix {
		t.Fatalf("WriteAtomic path = %q, want %q", path, dataPath+JSONSuffix)
	}

	loaded, loadedPath, format, err := Load(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	if format != FormatJSON || loadedPath != path {
		t.Fatalf("Load format/path = %q/%q, want json/%q", format, loadedPath, path)
	}
	if loaded.Checksum != m.Checksum || loaded.SavedBy != m.SavedBy {
		t.Fatalf("Load = %+v, want checksum/saved_by matching %+v", loaded, m)
	}
}

func TestWriteAtomicSwitchingFormatRemovesAlternate(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "sample.csv")
	m := &Metadata{Checksum: "cafebabe", HashAlgo: oid.Blake3, Size: 10, SavedBy: "bob"}

	if _, err := WriteAtomic(dataPath, m, FormatJSON); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteAtomic(dataPath, m, FormatTOML); err != nil {
		t.Fatal(err)
	}

	jsonPath, tomlPath := PathFor(dataPath)
	if _, err := os.Stat(jsonPath); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed after switching to toml, stat err = %v", jsonPath, err)
	}
	if _, err := os.Stat(tomlPath); err != nil {
		t.Fatalf("expected %s to exist: %v", tomlPath, err)
	}
}

func TestResolvePrefersTOMLWhenBothExist(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "sample.csv")
	m := &Metadata{Checksum: "aaaa", HashAlgo: oid.SHA256, Size: 1}

	jsonPath, tomlPath := PathFor(dataPath)
	bJSON, err := Marshal(m, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jsonPath, bJSON, 0o640); err != nil {
		t.Fatal(err)
	}
	bTOML, err := Marshal(m, FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tomlPath, bTOML, 0o640); err != nil {
		t.Fatal(err)
	}

	path, format, ok := Resolve(dataPath)
	if !ok || format != FormatTOML || path != tomlPath {
		t.Fatalf("Resolve = %q, %q, %v; want toml path preferred", path, format, ok)
	}
}

func TestOidUsesEffectiveHashAlgoForBackwardCompat(t *testing.T) {
	m := &Metadata{Checksum: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"}
	id, err := m.Oid()
	if err != nil {
		t.Fatal(err)
	}
	if id.Algo != oid.Blake3 {
		t.Fatalf("Oid().Algo = %q, want blake3 default", id.Algo)
	}
}

func TestRemoveDeletesBothSidecars(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "sample.csv")
	m := &Metadata{Checksum: "feedface", HashAlgo: oid.SHA256, Size: 3}
	if _, err := WriteAtomic(dataPath, m, FormatJSON); err != nil {
		t.Fatal(err)
	}

	if err := Remove(dataPath); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := Resolve(dataPath); ok {
		t.Fatal("expected no sidecar to remain after Remove")
	}
}

func TestAddTimeRFC3339Format(t *testing.T) {
	m := &Metadata{AddTime: time.Date(2026, 7, 31, 12, 0, 0, 250000000, time.UTC)}
	got := m.AddTimeRFC3339()
	want := "2026-07-31T12:00:00.250Z"
	if got != want {
		t.Fatalf("AddTimeRFC3339() = %q, want %q", got, want)
	}
}
