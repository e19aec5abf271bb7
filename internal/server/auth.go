package server

import (
	"net/http"
	"strings"

	"github.com/a2-ai/dvs/internal/dvserr"
)

// requirePermission wraps next with a bearer-token check, the way the
// teacher's auth.AccessController gates registry routes. When auth is
// disabled every request is treated as Admin (spec §4.11 "If enabled").
func (a *App) requirePermission(want Permission, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Auth.Enabled {
			next(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, dvserr.New(dvserr.KindUnauthorized, "missing or malformed Authorization header"))
			return
		}

		perm, ok := a.keys.lookup(token)
		if !ok {
			writeError(w, r, dvserr.New(dvserr.KindUnauthorized, "unknown API key"))
			return
		}
		if !perm.Has(want) {
			writeError(w, r, dvserr.New(dvserr.KindForbidden, "API key lacks the required permission"))
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}
