// Package objectstore implements the DVS object store capability: a small
// {exists, fetch, store} surface with a local filesystem implementation, an
// HTTP CAS client implementation, and a chain that composes several stores
// the way the teacher's storage-driver base wraps and layers drivers.
package objectstore

import (
	"context"
	"errors"
	"io"

	"github.com/a2-ai/dvs/internal/oid"
)

// ErrNotFound is returned by Get/Has-adjacent calls when an object is absent
// from a store. Implementations that can distinguish "absent" from other
// I/O failures must return this sentinel (possibly wrapped).
var ErrNotFound = errors.New("objectstore: object not found")

// ErrUnauthorized is returned by remote stores on 401/403.
var ErrUnauthorized = errors.New("objectstore: unauthorized")

// ErrTooLarge is returned by remote stores on 413.
var ErrTooLarge = errors.New("objectstore: payload too large")

// Store is the capability set every object-store backend implements:
// existence check, byte fetch, byte store. Implementations are safe for
// concurrent use by multiple goroutines issuing independent requests.
type Store interface {
	// Has reports whether oid is present in the store.
	Has(ctx context.Context, id oid.Oid) (bool, error)

	// Get returns a reader for the object's bytes. Callers must Close it.
	// Returns ErrNotFound (possibly wrapped) if the object is absent.
	Get(ctx context.Context, id oid.Oid) (io.ReadCloser, error)

	// Put stores the bytes read from r under oid. The HTTP store returns the
	// server's rejection of bytes whose hash doesn't match oid; the local
	// store writes the bytes without verifying them.
	Put(ctx context.Context, id oid.Oid, size int64, r io.Reader) error

	// Type returns a short diagnostic name ("local", "http", "chain").
	Type() string
}
