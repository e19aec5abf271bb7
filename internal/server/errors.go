package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/dvslog"
)

// writeError writes the JSON error body of spec §6 "HTTP wire protocol":
// {"error": string}, with the status code carrying the taxonomy via
// dvserr.HTTPStatus.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *dvserr.Error
	status := http.StatusInternalServerError
	msg := err.Error()
	if errors.As(err, &de) {
		status = dvserr.HTTPStatus(de.Kind)
		msg = de.Error()
	}

	dvslog.From(r.Context()).WithField("status", status).WithError(err).Error("request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
