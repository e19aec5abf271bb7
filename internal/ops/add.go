package ops

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/manifest"
	"github.com/a2-ai/dvs/internal/metadata"
	"github.com/a2-ai/dvs/internal/oid"
)

// AddOptions configures Add. HashAlgo and Format override the workspace
// config's defaults for this invocation only (spec §4.5 step 2).
type AddOptions struct {
	HashAlgo oid.Algo
	Format   metadata.Format
	Message  string
	Actor    string
}

// Add publishes each of paths into DVS, per spec §4.5. Per-file failures are
// reported in the returned Results without aborting the batch; only
// workspace-level failures (loading or writing the manifest, recording the
// snapshot and reflog entry) return an error.
func Add(ctx context.Context, ws *Workspace, paths []string, opts AddOptions) ([]Result, error) {
	mf, err := loadOrNewManifest(ws)
	if err != nil {
		return nil, err
	}

	algo := resolveAlgo(ws, opts.HashAlgo)
	format := opts.Format
	if format == "" {
		format = metadata.Format(ws.Config.EffectiveMetadataFormat())
	}
	actor := opts.Actor
	if actor == "" {
		actor = currentActor()
	}

	var results []Result
	var affected []string
	manifestDirty := false

	for _, p := range paths {
		res := addOne(ctx, ws, mf, p, algo, format, opts.Message, actor)
		results = append(results, res)
		if res.Outcome != OutcomeError {
			affected = append(affected, res.Path)
			manifestDirty = true
		}
	}

	if manifestDirty {
		if err := manifest.WriteAtomic(ws.Layout.ManifestPath(), mf); err != nil {
			return results, err
		}
	}

	if len(affected) > 0 {
		if err := snapshotAndLog(ws, mf, "add", opts.Message, actor, affected); err != nil {
			return results, err
		}
	}

	return results, nil
}

func addOne(ctx context.Context, ws *Workspace, mf *manifest.Manifest, rawPath string, algo oid.Algo, format metadata.Format, message, actor string) Result {
	rel, err := ws.Backend.Normalize(rawPath)
	if err != nil {
		return errResult(rawPath, err)
	}

	info, statErr := os.Stat(rawPath)
	if statErr != nil {
		return errResult(rel, dvserr.Wrap(dvserr.KindInvalidTarget, rel, statErr))
	}
	if info.IsDir() {
		return errResult(rel, dvserr.New(dvserr.KindIsDirectory, rel))
	}

	ignored, err := ws.Backend.IsIgnored(rel)
	if err != nil {
		return errResult(rel, err)
	}
	if ignored {
		return errResult(rel, dvserr.New(dvserr.KindIgnored, rel))
	}

	digest, err := hash.HashFile(rawPath, algo)
	if err != nil {
		return errResult(rel, dvserr.Wrap(dvserr.KindHashError, rel, err))
	}
	id, err := oid.New(algo, digest)
	if err != nil {
		return errResult(rel, dvserr.Wrap(dvserr.KindHashError, rel, err))
	}

	if existing, _, _, err := metadata.Load(rawPath); err == nil {
		if existingOid, oerr := existing.Oid(); oerr == nil && existingOid.Equal(id) {
			return Result{Path: rel, Outcome: OutcomePresent, Oid: id.String()}
		}
	}

	if err := commitAdd(ctx, ws, mf, rawPath, rel, id, uint64(info.Size()), format, message, actor); err != nil {
		return errResult(rel, err)
	}
	return Result{Path: rel, Outcome: OutcomeCopied, Oid: id.String()}
}

// commitAdd performs the atomic commit sequence of spec §4.5 step 4,
// rolling back side effects in reverse order on any failure (step 5).
func commitAdd(ctx context.Context, ws *Workspace, mf *manifest.Manifest, rawPath, rel string, id oid.Oid, size uint64, format metadata.Format, message, actor string) error {
	storedNewObject, err := putObjectIfAbsent(ctx, ws, rawPath, id, int64(size))
	if err != nil {
		return dvserr.Wrap(dvserr.KindIOError, rel, err)
	}

	m := &metadata.Metadata{
		Checksum: id.Hex,
		HashAlgo: id.Algo,
		Size:     size,
		AddTime:  time.Now().UTC(),
		Message:  message,
		SavedBy:  actor,
	}
	if _, err := metadata.WriteAtomic(rawPath, m, format); err != nil {
		if storedNewObject {
			rollbackObject(ctx, ws, mf, id)
		}
		return dvserr.Wrap(dvserr.KindIOError, rel, err)
	}

	mf.Upsert(manifest.Entry{
		Path:        rel,
		Oid:         id.String(),
		Bytes:       size,
		Compression: manifest.CompressionNone,
		Remote:      manifest.DefaultRemote,
	})

	// Ignore-file maintenance failing is not fatal to the commit: the
	// object, metadata, and manifest entry are already durable and
	// correct; only the backend's ignore hygiene is stale.
	_ = ws.Backend.AddIgnore(dataIgnorePattern(rel))

	return nil
}

// putObjectIfAbsent copies rawPath's bytes into the external store (and the
// local cache, per the pushable-by-default Open Question decision) unless
// an object with the same oid already exists there with matching length
// (spec §4.5 step 4a). Reports whether it newly stored bytes, used by the
// failure-path rollback to decide whether to remove the object again.
func putObjectIfAbsent(ctx context.Context, ws *Workspace, rawPath string, id oid.Oid, size int64) (bool, error) {
	has, err := ws.External.Has(ctx, id)
	if err != nil {
		return false, err
	}
	if has {
		st, ok := ws.External.(interface {
			Stat(context.Context, oid.Oid) (int64, error)
		})
		if !ok {
			return false, nil
		}
		if n, err := st.Stat(ctx, id); err == nil && n == size {
			return false, nil
		}
	}

	f, err := os.Open(rawPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := ws.ExternalAndCache.Put(ctx, id, size, f); err != nil {
		return false, err
	}
	return true, nil
}

// rollbackObject removes a just-created object, but only if no manifest
// entry still references its oid (spec §4.5 step 5: "iff no other manifest
// entry references it by oid within this invocation").
func rollbackObject(ctx context.Context, ws *Workspace, mf *manifest.Manifest, id oid.Oid) {
	for _, e := range mf.Entries {
		if e.Oid == id.String() {
			return
		}
	}
	// Best-effort removal from the external store when it supports Remove
	// (the local store does); the local cache copy is left in place.
	if r, ok := ws.External.(interface {
		Remove(context.Context, oid.Oid) error
	}); ok {
		_ = r.Remove(ctx, id)
	}
}

// dataIgnorePattern returns the ignore pattern for rel's companion data
// file: just its own repo-relative name, never a global *.dvs glob
// (spec §4.5 step 4d, §9 Open questions).
func dataIgnorePattern(rel string) string {
	return "/" + rel
}

func loadOrNewManifest(ws *Workspace) (*manifest.Manifest, error) {
	mf, err := manifest.Load(ws.Layout.ManifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return manifest.New(), nil
		}
		return nil, fmt.Errorf("ops: load manifest: %w", err)
	}
	return mf, nil
}
