package ops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/metadata"
	"github.com/a2-ai/dvs/internal/oid"
)

// Get restores each of paths from external storage, per spec §4.6.
func Get(ctx context.Context, ws *Workspace, paths []string) ([]Result, error) {
	var results []Result
	for _, p := range paths {
		results = append(results, getOne(ctx, ws, p))
	}
	return results, nil
}

func getOne(ctx context.Context, ws *Workspace, rawPath string) Result {
	rel, err := ws.Backend.Normalize(rawPath)
	if err != nil {
		return errResult(rawPath, err)
	}

	m, _, _, err := metadata.Load(rawPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errResult(rel, dvserr.New(dvserr.KindMetadataNotFound, rel))
		}
		return errResult(rel, dvserr.Wrap(dvserr.KindMetadataParseError, rel, err))
	}

	id, err := m.Oid()
	if err != nil {
		return errResult(rel, dvserr.Wrap(dvserr.KindMetadataParseError, rel, err))
	}

	if info, statErr := os.Stat(rawPath); statErr == nil && !info.IsDir() {
		if digest, herr := hash.HashFile(rawPath, m.EffectiveHashAlgo()); herr == nil && digest == m.Checksum {
			return Result{Path: rel, Outcome: OutcomePresent, Oid: id.String()}
		}
	}

	has, err := ws.ExternalAndCache.Has(ctx, id)
	if err != nil {
		return errResult(rel, dvserr.Wrap(dvserr.KindIOError, rel, err))
	}
	if !has {
		return errResult(rel, dvserr.New(dvserr.KindObjectMissing, rel))
	}

	if err := copyObjectTo(ctx, ws, id, rawPath, m.EffectiveHashAlgo()); err != nil {
		return errResult(rel, err)
	}
	return Result{Path: rel, Outcome: OutcomeCopied, Oid: id.String()}
}

// copyObjectTo streams id's bytes from ExternalAndCache to dest via
// temp-then-rename, then re-hashes the written file and fails
// IntegrityError (deleting the partial file) on mismatch (spec §4.6 steps
// 4-5).
func copyObjectTo(ctx context.Context, ws *Workspace, id oid.Oid, dest string, algo oid.Algo) error {
	rc, err := ws.ExternalAndCache.Get(ctx, id)
	if err != nil {
		return dvserr.Wrap(dvserr.KindIOError, dest, err)
	}
	defer rc.Close()

	dir := filepath.Dir(dest)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.dvs-get.tmp", uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return dvserr.Wrap(dvserr.KindIOError, dest, err)
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(tmp)
		return dvserr.Wrap(dvserr.KindIOError, dest, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return dvserr.Wrap(dvserr.KindIOError, dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return dvserr.Wrap(dvserr.KindIOError, dest, err)
	}

	digest, err := hash.HashFile(tmp, algo)
	if err != nil {
		os.Remove(tmp)
		return dvserr.Wrap(dvserr.KindHashError, dest, err)
	}
	if digest != id.Hex {
		os.Remove(tmp)
		return dvserr.New(dvserr.KindIntegrityError,
			fmt.Sprintf("restored bytes hash to %s, expected %s", digest, id.Hex))
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return dvserr.Wrap(dvserr.KindIOError, dest, err)
	}
	return nil
}
