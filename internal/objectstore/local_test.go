package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/oid"
)

func testOid(t *testing.T, data []byte) oid.Oid {
	t.Helper()
	digest, err := hash.Sum(oid.SHA256, data)
	if err != nil {
		t.Fatal(err)
	}
	id, err := oid.New(oid.SHA256, digest)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestLocalPutGetHasRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())
	data := []byte("payload bytes")
	id := testOid(t, data)

	has, err := l.Has(ctx, id)
	if err != nil || has {
		t.Fatalf("Has before Put = %v, %v; want false, nil", has, err)
	}

	if err := l.Put(ctx, id, int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	has, err = l.Has(ctx, id)
	if err != nil || !has {
		t.Fatalf("Has after Put = %v, %v; want true, nil", has, err)
	}

	rc, err := l.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Get returned %q, want %q", got, data)
	}
}

func TestLocalPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())
	data := []byte("idempotent payload")
	id := testOid(t, data)

	if err := l.Put(ctx, id, int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}
	if err := l.Put(ctx, id, int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	size, err := l.Stat(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(data)) {
		t.Fatalf("Stat size = %d, want %d", size, len(data))
	}
}

func TestLocalGetMissingIsErrNotFound(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())
	id := testOid(t, []byte("never stored"))

	_, err := l.Get(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want wrapping ErrNotFound", err)
	}
}

func TestLocalRemoveThenGetMissing(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())
	data := []byte("to be removed")
	id := testOid(t, data)
	if err := l.Put(ctx, id, int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}

	if err := l.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := l.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Remove = %v, want ErrNotFound", err)
	}
}

func TestLocalStoragePathIsSharded(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root)
	data := []byte("sharded")
	id := testOid(t, data)
	if err := l.Put(context.Background(), id, int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, filepath.FromSlash(id.StoragePath()))
	f, err := os.Open(want)
	if err != nil {
		t.Fatalf("expected object at sharded path %s: %v", want, err)
	}
	f.Close()
}
