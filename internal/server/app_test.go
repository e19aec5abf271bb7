package server

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2-ai/dvs/internal/hash"
	"github.com/a2-ai/dvs/internal/oid"
)

func blake3Hex(t *testing.T, data []byte) string {
	t.Helper()
	digest, err := hash.Sum(oid.Blake3, data)
	require.NoError(t, err)
	return digest
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func newTestApp(t *testing.T, cfg Config) (*App, *httptest.Server) {
	t.Helper()
	cfg.Root = t.TempDir()
	app, err := NewApp(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return app, ts
}

func TestPutGetHeadRoundTrip(t *testing.T) {
	_, ts := newTestApp(t, DefaultConfig())

	payload := []byte("dvs object bytes")
	hex := blake3Hex(t, payload)
	url := ts.URL + "/objects/blake3/" + hex

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.ContentLength = int64(len(payload))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// A second PUT of the same bytes is idempotent and reports 200.
	req2, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req2.ContentLength = int64(len(payload))
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	resp2.Body.Close()

	headResp, err := http.Head(url)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, headResp.StatusCode)
	require.Equal(t, "16", headResp.Header.Get("Content-Length"))

	getResp, err := http.Get(url)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	body, err := io.ReadAll(getResp.Body)
	require.NoError(t, err)
	require.Equal(t, payload, body)
}

func TestPutRejectsHashMismatch(t *testing.T) {
	_, ts := newTestApp(t, DefaultConfig())

	payload := []byte("mismatched bytes")
	wrongHex := blake3Hex(t, []byte("something else"))
	url := ts.URL + "/objects/blake3/" + wrongHex

	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.ContentLength = int64(len(payload))
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer putResp.Body.Close()
	require.Equal(t, http.StatusBadRequest, putResp.StatusCode)

	// The partial object must not have been left behind.
	headResp, err := http.Head(url)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, headResp.StatusCode)
}

func TestGetMissingObjectIs404(t *testing.T) {
	_, ts := newTestApp(t, DefaultConfig())

	resp, err := http.Get(ts.URL + "/objects/blake3/" + hexEncode(make([]byte, 32)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteObject(t *testing.T) {
	_, ts := newTestApp(t, DefaultConfig())

	payload := []byte("to be deleted")
	hex := blake3Hex(t, payload)
	url := ts.URL + "/objects/blake3/" + hex

	req, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	req.ContentLength = int64(len(payload))
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	putResp.Body.Close()

	delReq, _ := http.NewRequest(http.MethodDelete, url, nil)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)
	delResp.Body.Close()

	headResp, err := http.Head(url)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, headResp.StatusCode)
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth = AuthConfig{
		Enabled: true,
		Keys: []APIKey{
			{Token: "read-only-token", Permissions: []string{"read"}},
			{Token: "admin-token", Permissions: []string{"admin"}},
		},
	}
	_, ts := newTestApp(t, cfg)

	payload := []byte("auth-gated bytes")
	hex := blake3Hex(t, payload)
	url := ts.URL + "/objects/blake3/" + hex

	// No token at all.
	req, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	req.ContentLength = int64(len(payload))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Read-only token lacks write permission.
	req2, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	req2.ContentLength = int64(len(payload))
	req2.Header.Set("Authorization", "Bearer read-only-token")
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp2.StatusCode)
	resp2.Body.Close()

	// Admin token may write.
	req3, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	req3.ContentLength = int64(len(payload))
	req3.Header.Set("Authorization", "Bearer admin-token")
	resp3, err := http.DefaultClient.Do(req3)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp3.StatusCode)
	resp3.Body.Close()
}

func TestHealthAndStatus(t *testing.T) {
	_, ts := newTestApp(t, DefaultConfig())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	statusResp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)
}
