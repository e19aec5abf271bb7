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
	"github.com/a2-ai/dvs/internal/manifest"
	"github.com/a2-ai/dvs/internal/objectstore"
	"github.com/a2-ai/dvs/internal/oid"
)

// PushSummary aggregates the outcome of Push, per spec §4.8.
type PushSummary struct {
	Uploaded int
	Present  int
	Failed   int
	Results  []Result
}

// PullSummary aggregates the outcome of Pull, per spec §4.8.
type PullSummary struct {
	Downloaded int
	Cached     int
	Failed     int
	Results    []Result
}

// resolveRemote applies the URL resolution order of spec §4.8: explicit
// argument > LocalConfig.base_url > Manifest.base_url.
func resolveRemote(ws *Workspace, explicit, manifestBaseURL string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if ws.Local.BaseURL != "" {
		return ws.Local.BaseURL, nil
	}
	if manifestBaseURL != "" {
		return manifestBaseURL, nil
	}
	return "", dvserr.New(dvserr.KindNoRemote, "no remote base URL configured")
}

// Push uploads every Oid referenced by the manifest (or the subset implied
// by paths) to the remote HTTP CAS, reading bytes from the cache, falling
// back to the external store when the cache misses (spec §4.8, and the
// Open Question decision to support both population strategies).
func Push(ctx context.Context, ws *Workspace, paths []string, remoteURL string) (PushSummary, error) {
	mf, err := loadOrNewManifest(ws)
	if err != nil {
		return PushSummary{}, err
	}
	base, err := resolveRemote(ws, remoteURL, mf.BaseURL)
	if err != nil {
		return PushSummary{}, err
	}
	remote := objectstore.NewHTTP(base, ws.Local.Auth.Token)

	sizes, ids, err := oidsForPaths(ws, mf, paths)
	if err != nil {
		return PushSummary{}, err
	}

	var summary PushSummary
	for _, id := range ids {
		res := pushOne(ctx, ws, remote, id, sizes[id.String()])
		summary.Results = append(summary.Results, res)
		switch res.Outcome {
		case OutcomeUploaded:
			summary.Uploaded++
		case OutcomeAlreadyPresent:
			summary.Present++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

func pushOne(ctx context.Context, ws *Workspace, remote objectstore.Store, id oid.Oid, size int64) Result {
	has, err := remote.Has(ctx, id)
	if err != nil {
		return errResult(id.String(), err)
	}
	if has {
		return Result{Path: id.String(), Outcome: OutcomeAlreadyPresent, Oid: id.String()}
	}

	// Read through the cache first, falling back to the external store,
	// the way ws.ExternalAndCache's Chain is ordered (spec §4.8: "Bytes
	// for Oids that exist in the external store but not in the cache are
	// streamed from the external store").
	rc, err := ws.ExternalAndCache.Get(ctx, id)
	if err != nil {
		return errResult(id.String(), dvserr.Wrap(dvserr.KindObjectMissing, id.String(), err))
	}
	defer rc.Close()

	if err := remote.Put(ctx, id, size, rc); err != nil {
		return errResult(id.String(), err)
	}
	return Result{Path: id.String(), Outcome: OutcomeUploaded, Oid: id.String()}
}

// Pull downloads every Oid referenced by the manifest (or the subset
// implied by paths) into the local cache, per spec §4.8.
func Pull(ctx context.Context, ws *Workspace, paths []string, remoteURL string) (PullSummary, error) {
	mf, err := loadOrNewManifest(ws)
	if err != nil {
		return PullSummary{}, err
	}
	base, err := resolveRemote(ws, remoteURL, mf.BaseURL)
	if err != nil {
		return PullSummary{}, err
	}
	remote := objectstore.NewHTTP(base, ws.Local.Auth.Token)

	sizes, ids, err := oidsForPaths(ws, mf, paths)
	if err != nil {
		return PullSummary{}, err
	}

	var summary PullSummary
	for _, id := range ids {
		res := pullOne(ctx, ws, remote, id, sizes[id.String()])
		summary.Results = append(summary.Results, res)
		switch res.Outcome {
		case OutcomeDownloaded:
			summary.Downloaded++
		case OutcomeAlreadyCached:
			summary.Cached++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

func pullOne(ctx context.Context, ws *Workspace, remote objectstore.Store, id oid.Oid, size int64) Result {
	has, err := ws.Cache.Has(ctx, id)
	if err != nil {
		return errResult(id.String(), err)
	}
	if has {
		return Result{Path: id.String(), Outcome: OutcomeAlreadyCached, Oid: id.String()}
	}

	rc, err := remote.Get(ctx, id)
	if err != nil {
		return errResult(id.String(), err)
	}
	defer rc.Close()

	// Verify the downloaded bytes against id before they ever reach the
	// cache, the same temp-file-then-verify pattern copyObjectTo (get.go)
	// uses: ws.Cache.Put commits its destination by rename internally, so
	// once it has been called there is no way to take a corrupt object
	// back out of content-addressed storage.
	tmpDir := ws.Layout.CacheDir()
	if err := os.MkdirAll(tmpDir, 0o770); err != nil {
		return errResult(id.String(), dvserr.Wrap(dvserr.KindIOError, id.String(), err))
	}
	tmpPath := filepath.Join(tmpDir, fmt.Sprintf(".%s.dvs-pull.tmp", uuid.NewString()))
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return errResult(id.String(), dvserr.Wrap(dvserr.KindIOError, id.String(), err))
	}
	defer os.Remove(tmpPath)

	hasher, err := hash.NewHasher(id.Algo)
	if err != nil {
		tmp.Close()
		return errResult(id.String(), dvserr.Wrap(dvserr.KindHashError, id.String(), err))
	}
	tee := io.TeeReader(rc, hasherWriter{hasher})
	if _, err := io.Copy(tmp, tee); err != nil {
		tmp.Close()
		return errResult(id.String(), dvserr.Wrap(dvserr.KindIOError, id.String(), err))
	}
	if err := tmp.Close(); err != nil {
		return errResult(id.String(), dvserr.Wrap(dvserr.KindIOError, id.String(), err))
	}

	if digest := hasher.Finalize(); digest != id.Hex {
		return errResult(id.String(), dvserr.New(dvserr.KindIntegrityError,
			"downloaded bytes for "+id.String()+" hashed to "+digest))
	}

	verified, err := os.Open(tmpPath)
	if err != nil {
		return errResult(id.String(), dvserr.Wrap(dvserr.KindIOError, id.String(), err))
	}
	defer verified.Close()
	if err := ws.Cache.Put(ctx, id, size, verified); err != nil {
		return errResult(id.String(), err)
	}
	return Result{Path: id.String(), Outcome: OutcomeDownloaded, Oid: id.String()}
}

// hasherWriter adapts a hash.Hasher to io.Writer so it can sit behind
// io.TeeReader while io.Copy writes the primary stream to the temp file.
type hasherWriter struct{ h hash.Hasher }

func (w hasherWriter) Write(p []byte) (int, error) { return w.h.Update(p) }

// oidsForPaths resolves the unique Oids (and their byte sizes) that a
// push/pull invocation should transfer: every manifest entry if paths is
// empty, or only the entries for the given repo-relative paths.
func oidsForPaths(ws *Workspace, mf *manifest.Manifest, paths []string) (sizes map[string]int64, ids []oid.Oid, err error) {
	sizes = make(map[string]int64)
	seen := make(map[string]struct{})

	add := func(e manifest.Entry) error {
		if _, dup := seen[e.Oid]; dup {
			return nil
		}
		id, perr := e.ParsedOid()
		if perr != nil {
			return perr
		}
		seen[e.Oid] = struct{}{}
		sizes[e.Oid] = int64(e.Bytes)
		ids = append(ids, id)
		return nil
	}

	if len(paths) == 0 {
		for _, e := range mf.Entries {
			if err := add(e); err != nil {
				return nil, nil, err
			}
		}
		return sizes, ids, nil
	}

	for _, p := range paths {
		rel, nerr := ws.Backend.Normalize(p)
		if nerr != nil {
			return nil, nil, nerr
		}
		e, ok := mf.Find(rel)
		if !ok {
			continue
		}
		if err := add(e); err != nil {
			return nil, nil, err
		}
	}
	return sizes, ids, nil
}
