package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/a2-ai/dvs/internal/dvslog"
	"github.com/a2-ai/dvs/internal/objectstore"
	"github.com/a2-ai/dvs/internal/requestutil"
	"github.com/a2-ai/dvs/internal/version"
)

// Route names, mirroring the teacher's v2.RouteName* constants used to
// register dispatchers against a shared router.
const (
	routeNameObject = "object"
	routeNameHealth = "health"
	routeNameStatus = "status"
)

// App is the HTTP CAS server, analogous to the teacher's handlers.App: a
// long-lived object holding the wired store, auth table, and router.
type App struct {
	cfg       Config
	store     *objectstore.Local
	keys      *keyTable
	router    *mux.Router
	startedAt time.Time
}

// NewApp wires an App from cfg, ready to be wrapped in ListenAndServe or a
// test httptest.Server.
func NewApp(cfg Config) (*App, error) {
	kt, err := newKeyTable(cfg.Auth)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		store:     objectstore.NewLocal(cfg.Root),
		keys:      kt,
		router:    mux.NewRouter(),
		startedAt: time.Now(),
	}
	a.registerRoutes()
	return a, nil
}

func (a *App) registerRoutes() {
	a.router.HandleFunc("/objects/{algo}/{hex}", a.requirePermission(PermissionRead, a.handleHeadObject)).
		Methods(http.MethodHead).Name(routeNameObject)
	a.router.HandleFunc("/objects/{algo}/{hex}", a.requirePermission(PermissionRead, a.handleGetObject)).
		Methods(http.MethodGet)
	a.router.HandleFunc("/objects/{algo}/{hex}", a.requirePermission(PermissionWrite, a.handlePutObject)).
		Methods(http.MethodPut)
	a.router.HandleFunc("/objects/{algo}/{hex}", a.requirePermission(PermissionDelete, a.handleDeleteObject)).
		Methods(http.MethodDelete)

	a.router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet).Name(routeNameHealth)
	a.router.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet).Name(routeNameStatus)
}

// Handler returns the fully wrapped http.Handler: access logging and
// (optionally) CORS around the route table, the way the teacher's
// handlers.NewApp composes middleware around its router in cmd/registry.
func (a *App) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withRequestLogger(h)
	if a.cfg.CORS.Enabled {
		h = handlers.CORS(
			handlers.AllowedOrigins(a.cfg.CORS.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "Content-Length"}),
		)(h)
	}
	return h
}

// withRequestLogger attaches a per-request logrus entry to the context and
// logs completion, the way the teacher's dcontext threads a *logrus.Entry
// through request handling (internal/dvslog mirrors dcontext.Logger here).
func (a *App) withRequestLogger(next http.Handler) http.Handler {
	base := logrus.NewEntry(logrus.StandardLogger())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := base.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": requestutil.RemoteIP(r),
		})
		ctx := dvslog.WithLogger(r.Context(), entry)
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))
		entry.WithFields(logrus.Fields{
			"status":   sw.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// handleHealth answers GET /health (spec §4.11).
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse is the body of GET /status (spec §4.11 "server summary").
type statusResponse struct {
	Version     string `json:"version"`
	ObjectCount int    `json:"object_count"`
	UptimeSecs  int64  `json:"uptime_seconds"`
	StorageUsed int64  `json:"storage_used_bytes"`
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, used, err := walkStorage(a.cfg.Root)
	if err != nil {
		writeError(w, r, fmt.Errorf("server: compute storage usage: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Version:     version.Version(),
		ObjectCount: count,
		UptimeSecs:  int64(time.Since(a.startedAt).Seconds()),
		StorageUsed: used,
	})
}
