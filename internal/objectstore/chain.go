package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/a2-ai/dvs/internal/oid"
)

// Chain composes multiple stores: Has/Get scan in order and short-circuit on
// the first hit; Put writes to every member. This is how DVS lets `get` and
// `push` transparently read through cache -> external store -> remote
// without each operation knowing which layer actually held the bytes.
type Chain struct {
	Stores []Store
}

// NewChain returns a Chain over stores, tried in the given order.
func NewChain(stores ...Store) *Chain {
	return &Chain{Stores: stores}
}

func (c *Chain) Type() string { return "chain" }

func (c *Chain) Has(ctx context.Context, id oid.Oid) (bool, error) {
	for _, s := range c.Stores {
		ok, err := s.Has(ctx, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (c *Chain) Get(ctx context.Context, id oid.Oid) (io.ReadCloser, error) {
	var lastErr error
	for _, s := range c.Stores {
		rc, err := s.Get(ctx, id)
		if err == nil {
			return rc, nil
		}
		if errors.Is(err, ErrNotFound) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, fmt.Errorf("objectstore: chain get %s: %w", id, lastErr)
}

// Put stores content in every member store. Since Put takes a single
// io.Reader, the bytes are buffered once in memory so each member sees an
// independent stream; callers writing very large objects through a Chain
// should instead Put into the authoritative store directly and mirror with
// a background copy.
func (c *Chain) Put(ctx context.Context, id oid.Oid, size int64, r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("objectstore: chain buffer %s: %w", id, err)
	}

	var errs []error
	for _, s := range c.Stores {
		if err := s.Put(ctx, id, int64(len(buf)), bytes.NewReader(buf)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Type(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("objectstore: chain put %s: %w", id, errors.Join(errs...))
	}
	return nil
}
