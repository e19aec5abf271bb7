// Package ops implements the nine DVS operations (spec §4.4-§4.10):
// init, add, get, status, push, pull, materialize, log, rollback. Each
// operation is a function over a *Workspace, following the teacher's
// pattern of a small struct bundling the repo root's collaborators
// (backend, config, stores) that every handler receives as a pointer.
package ops

import (
	"os"
	"os/user"

	"github.com/a2-ai/dvs/internal/backend"
	"github.com/a2-ai/dvs/internal/config"
	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/layout"
	"github.com/a2-ai/dvs/internal/objectstore"
	"github.com/a2-ai/dvs/internal/oid"
	"github.com/a2-ai/dvs/internal/state"
)

// Workspace bundles every collaborator an operation needs, resolved once at
// the start of an invocation by Open.
type Workspace struct {
	Backend      backend.Backend
	Layout       *layout.Layout
	Config       *config.Config
	ConfigPath   string
	ConfigFormat config.Format
	Local        *config.LocalConfig

	// External is the authoritative object store at Config.StorageDir.
	External objectstore.Store
	// Cache is the local mirror at .dvs/cache/objects.
	Cache objectstore.Store
	// ExternalAndCache tries the cache first, then external, and writes
	// through to both — the store add() and get() read/write against.
	ExternalAndCache objectstore.Store

	State *state.Store
}

// Open discovers the workspace rooted above dir, loads its config and local
// config, and wires the object stores. Every operation except Init calls
// this first; Init performs its own, more permissive discovery.
func Open(dir string) (*Workspace, error) {
	be, err := backend.Discover(dir)
	if err != nil {
		return nil, err
	}

	path, format, err := config.Discover(be.Root())
	if err != nil {
		return nil, dvserr.Wrap(dvserr.KindConfigNotFound, be.Root(), err)
	}
	cfg, err := config.Load(path, format)
	if err != nil {
		return nil, err
	}

	lay := layout.New(be.Root())
	local, err := config.LoadLocal(lay.LocalConfigPath())
	if err != nil {
		return nil, err
	}

	external := objectstore.NewLocal(cfg.StorageDir)
	if cfg.Permissions != nil {
		external.Permissions = os.FileMode(*cfg.Permissions)
	}
	cache := objectstore.NewLocal(lay.CacheDir())

	return &Workspace{
		Backend:          be,
		Layout:           lay,
		Config:           cfg,
		ConfigPath:       path,
		ConfigFormat:     format,
		Local:            local,
		External:         external,
		Cache:            cache,
		ExternalAndCache: objectstore.NewChain(cache, external),
		State:            state.NewStore(lay),
	}, nil
}

// Outcome classifies the per-file result of a batch operation (spec §7
// "Propagation policy": per-file results never abort the batch).
type Outcome string

const (
	OutcomeCopied         Outcome = "copied"
	OutcomePresent        Outcome = "present"
	OutcomeAlreadyCached  Outcome = "already_cached"
	OutcomeAlreadyPresent Outcome = "already_present"
	OutcomeUploaded       Outcome = "uploaded"
	OutcomeDownloaded     Outcome = "downloaded"
	OutcomeAbsent         Outcome = "absent"
	OutcomeCurrent        Outcome = "current"
	OutcomeUnsynced       Outcome = "unsynced"
	OutcomeError          Outcome = "error"
)

// Result is one file's outcome from a batch operation, carrying enough
// detail for both human and JSON presentation.
type Result struct {
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
	Oid     string  `json:"oid,omitempty"`
	Err     error   `json:"-"`
	ErrKind dvserr.Kind `json:"error_kind,omitempty"`
	Detail  string  `json:"detail,omitempty"`
}

func errResult(path string, err error) Result {
	r := Result{Path: path, Outcome: OutcomeError, Err: err, Detail: err.Error()}
	r.ErrKind = dvserr.KindOf(err)
	return r
}

// currentActor resolves the identity recorded as Metadata.SavedBy and
// ReflogEntry.Actor, preferring the OS user the way the teacher's CLI
// resolves a default commit identity.
func currentActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func resolveAlgo(ws *Workspace, override oid.Algo) oid.Algo {
	if override != "" {
		return override
	}
	return ws.Config.EffectiveHashAlgo()
}
