package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/a2-ai/dvs/internal/oid"
	"github.com/a2-ai/dvs/internal/uuid"
)

// Local is a filesystem-backed Store. Put is idempotent: it never
// overwrites an existing object sharing the same Oid, since content
// addressing guarantees the bytes are already correct.
type Local struct {
	root string

	// Permissions, applied to newly created object files after rename. Zero
	// means "leave the umask-derived default".
	Permissions os.FileMode
}

// NewLocal returns a Local store rooted at root. The root directory itself
// is created lazily by the first Put.
func NewLocal(root string) *Local {
	return &Local{root: filepath.Clean(root)}
}

func (l *Local) Type() string { return "local" }

func (l *Local) path(id oid.Oid) string {
	return filepath.Join(l.root, filepath.FromSlash(id.StoragePath()))
}

func (l *Local) Has(ctx context.Context, id oid.Oid) (bool, error) {
	_, err := os.Stat(l.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("objectstore: local stat %s: %w", id, err)
}

func (l *Local) Get(ctx context.Context, id oid.Oid) (io.ReadCloser, error) {
	f, err := os.Open(l.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("objectstore: local get %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("objectstore: local get %s: %w", id, err)
	}
	return f, nil
}

// Put writes r's bytes to the object's storage path via temp-file-then-
// rename within the same directory, so the rename is an atomic same-
// filesystem operation. If an object already exists at that path with the
// expected size, Put is a no-op (idempotent put per spec §4.2).
func (l *Local) Put(ctx context.Context, id oid.Oid, size int64, r io.Reader) error {
	dest := l.path(id)
	if fi, err := os.Stat(dest); err == nil {
		if size < 0 || fi.Size() == size {
			io.Copy(io.Discard, r)
			return nil
		}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("objectstore: local mkdir %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp", uuid.NewString()))
	// uuid.NewString returns a time-ordered V7 id, keeping temp-file names
	// in the same directory roughly sorted by creation order.
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o660)
	if err != nil {
		return fmt.Errorf("objectstore: local create temp %s: %w", tmp, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("objectstore: local write %s: %w", id, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("objectstore: local fsync %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("objectstore: local close %s: %w", id, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		if errors.Is(err, os.ErrExist) {
			// Another writer won the race; content addressing guarantees
			// identical bytes, so this is not a failure.
			return nil
		}
		return fmt.Errorf("objectstore: local rename %s: %w", id, err)
	}

	if l.Permissions != 0 {
		_ = os.Chmod(dest, l.Permissions)
	}
	return nil
}

// Stat returns the stored object's size in bytes, used by the HTTP CAS
// server to answer HEAD requests with an authoritative Content-Length
// (spec §4.11) and by add to check the length of an existing object.
func (l *Local) Stat(ctx context.Context, id oid.Oid) (int64, error) {
	fi, err := os.Stat(l.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("objectstore: local stat %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("objectstore: local stat %s: %w", id, err)
	}
	return fi.Size(), nil
}

// Remove deletes the stored object, used by the HTTP CAS server's DELETE
// endpoint (spec §4.11) and by add's rollback of an object it stored for a
// file whose add then failed.
func (l *Local) Remove(ctx context.Context, id oid.Oid) error {
	if err := os.Remove(l.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("objectstore: local remove %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("objectstore: local remove %s: %w", id, err)
	}
	return nil
}

// Root returns the store's filesystem root, used by the HTTP CAS server
// to compute aggregate storage usage for /status.
func (l *Local) Root() string { return l.root }
