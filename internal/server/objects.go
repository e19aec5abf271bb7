package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/objectstore"
	"github.com/a2-ai/dvs/internal/oid"
)

// parseObjectID builds an oid.Oid from the {algo}/{hex} route variables,
// spec §4.11 "Endpoints".
func parseObjectID(r *http.Request) (oid.Oid, error) {
	vars := mux.Vars(r)
	id, err := oid.New(oid.Algo(vars["algo"]), vars["hex"])
	if err != nil {
		return oid.Oid{}, dvserr.Wrap(dvserr.KindInvalidTarget, vars["algo"]+":"+vars["hex"], err)
	}
	return id, nil
}

// handleHeadObject answers HEAD /objects/{algo}/{hex}: 200 with
// Content-Length if present, 404 otherwise.
func (a *App) handleHeadObject(w http.ResponseWriter, r *http.Request) {
	id, err := parseObjectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := a.store.Stat(r.Context(), id)
	if err != nil {
		writeError(w, r, objectErr(id, err))
		return
	}
	w.Header().Set("Content-Length", itoa64(size))
	w.WriteHeader(http.StatusOK)
}

// handleGetObject answers GET /objects/{algo}/{hex}: the raw object bytes
// as application/octet-stream.
func (a *App) handleGetObject(w http.ResponseWriter, r *http.Request) {
	id, err := parseObjectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rc, err := a.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, objectErr(id, err))
		return
	}
	defer rc.Close()

	if size, err := a.store.Stat(r.Context(), id); err == nil {
		w.Header().Set("Content-Length", itoa64(size))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

// handlePutObject answers PUT /objects/{algo}/{hex}: the request body is
// hashed while it streams to storage, and rejected with 400 if it doesn't
// match {hex} (spec §4.11 "PUT integrity"). Responds 201 if the object was
// newly created, 200 if it already existed.
func (a *App) handlePutObject(w http.ResponseWriter, r *http.Request) {
	id, err := parseObjectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	existed, err := a.store.Has(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := r.Body
	if a.cfg.MaxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadSize)
	}

	hasher, err := hash.NewHasher(id.Algo)
	if err != nil {
		writeError(w, r, dvserr.Wrap(dvserr.KindHashError, id.String(), err))
		return
	}
	tee := io.TeeReader(body, hashWriterFunc(hasher.Update))

	if err := a.store.Put(r.Context(), id, r.ContentLength, tee); err != nil {
		if isTooLarge(err) {
			writeError(w, r, dvserr.New(dvserr.KindTooLarge, "request body exceeds max_upload_size"))
			return
		}
		writeError(w, r, dvserr.Wrap(dvserr.KindIOError, id.String(), err))
		return
	}

	digest := hasher.Finalize()
	if digest != id.Hex {
		_ = a.store.Remove(r.Context(), id)
		writeError(w, r, dvserr.New(dvserr.KindIntegrityError,
			"uploaded bytes hashed to "+digest+", expected "+id.Hex))
		return
	}

	if existed {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
}

// handleDeleteObject answers DELETE /objects/{algo}/{hex}: 204 on success.
func (a *App) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	id, err := parseObjectID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.Remove(r.Context(), id); err != nil {
		writeError(w, r, objectErr(id, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// objectErr maps an objectstore sentinel error to the taxonomy's
// object_missing kind, leaving anything else as an io_error.
func objectErr(id oid.Oid, err error) error {
	if errors.Is(err, objectstore.ErrNotFound) {
		return dvserr.New(dvserr.KindObjectMissing, id.String())
	}
	return dvserr.Wrap(dvserr.KindIOError, id.String(), err)
}

// isTooLarge reports whether err originated from http.MaxBytesReader
// rejecting an over-cap body.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

type hashWriterFunc func(p []byte) (int, error)

func (f hashWriterFunc) Write(p []byte) (int, error) { return f(p) }

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
