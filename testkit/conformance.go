package testkit

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/objectstore"
	"github.com/a2-ai/dvs/internal/oid"
)

// RunStoreConformance exercises store against the Has/Get/Put contract every
// objectstore.Store implementation must satisfy, the way the teacher's
// conformance.Run exercises every storagedriver.StorageDriver against a
// shared fixture set. Called from testkit/conformance_test.go for Local and
// Chain; it runs each check as a t.Run subtest.
func RunStoreConformance(t *testing.T, store objectstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("MissingObjectIsAbsent", func(t *testing.T) {
		id := mustOid(t, []byte("conformance: never stored"))
		has, err := store.Has(ctx, id)
		if err != nil {
			t.Fatalf("Has: %v", err)
		}
		if has {
			t.Fatal("Has reported true for an object never Put")
		}
		if _, err := store.Get(ctx, id); err == nil {
			t.Fatal("Get succeeded for an object never Put")
		}
	})

	t.Run("PutThenGetReturnsIdenticalBytes", func(t *testing.T) {
		data := []byte("conformance: round trip payload")
		id := mustOid(t, data)

		if err := store.Put(ctx, id, int64(len(data)), bytes.NewReader(data)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		has, err := store.Has(ctx, id)
		if err != nil || !has {
			t.Fatalf("Has after Put = %v, %v; want true, nil", has, err)
		}
		rc, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		defer rc.Close()
		got, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("Get returned %q, want %q", got, data)
		}
	})

	t.Run("PutIsIdempotent", func(t *testing.T) {
		data := []byte("conformance: idempotent put")
		id := mustOid(t, data)

		if err := store.Put(ctx, id, int64(len(data)), bytes.NewReader(data)); err != nil {
			t.Fatalf("first Put: %v", err)
		}
		if err := store.Put(ctx, id, int64(len(data)), bytes.NewReader(data)); err != nil {
			t.Fatalf("second Put: %v", err)
		}
		rc, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		defer rc.Close()
		got, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("Get after repeated Put returned %q, want %q", got, data)
		}
	})
}

func mustOid(t *testing.T, data []byte) oid.Oid {
	t.Helper()
	digest, err := hash.Sum(oid.Blake3, data)
	if err != nil {
		t.Fatalf("hash.Sum: %v", err)
	}
	id, err := oid.New(oid.Blake3, digest)
	if err != nil {
		t.Fatalf("oid.New: %v", err)
	}
	return id
}
