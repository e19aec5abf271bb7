package hash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a2-ai/dvs/internal/oid"
)

func TestSumMatchesAcrossAlgos(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	for _, algo := range []oid.Algo{oid.Blake3, oid.SHA256, oid.XXH3} {
		digest, err := Sum(algo, data)
		if err != nil {
			t.Fatalf("Sum(%s): %v", algo, err)
		}
		if len(digest) != algo.HexLen() {
			t.Fatalf("Sum(%s) length = %d, want %d", algo, len(digest), algo.HexLen())
		}
	}
}

func TestHashFileBufferedMatchesSum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.bin")
	data := bytes.Repeat([]byte("a"), 100)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatal(err)
	}

	want, err := Sum(oid.SHA256, data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path, oid.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("HashFile = %q, want %q", got, want)
	}
}

func TestHashFileMappedMatchesBufferedAboveThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "large.bin")
	data := bytes.Repeat([]byte("xyz"), (MMAPThreshold/3)+10)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) < MMAPThreshold {
		t.Fatalf("test fixture is below MMAPThreshold: %d", len(data))
	}

	want, err := Sum(oid.Blake3, data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path, oid.Blake3)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("HashFile = %q, want %q", got, want)
	}
}

func TestHashReaderConsumesWholeStream(t *testing.T) {
	data := strings.Repeat("0123456789", 10000)
	hasher, err := NewHasher(oid.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	n, err := HashReader(strings.NewReader(data), hasher)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(data)) {
		t.Fatalf("HashReader consumed %d bytes, want %d", n, len(data))
	}

	want, err := Sum(oid.SHA256, []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if got := hasher.Finalize(); got != want {
		t.Fatalf("Finalize() = %q, want %q", got, want)
	}
}

func TestNewHasherRejectsUnknownAlgo(t *testing.T) {
	if _, err := NewHasher(oid.Algo("md5")); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
