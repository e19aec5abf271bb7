package ops

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2-ai/dvs/internal/oid"
	"github.com/a2-ai/dvs/internal/server"
)

// newTestRemote spins up an HTTP CAS server backed by a fresh temp dir,
// returning both the server and its storage root so tests can reach in
// and tamper with stored objects directly (e.g. to simulate bit-rot).
func newTestRemote(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	cfg := server.DefaultConfig()
	cfg.Root = root
	app, err := server.NewApp(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return srv, root
}

func TestPushUploadsThenReportsAlreadyPresent(t *testing.T) {
	srv, _ := newTestRemote(t)

	pusher, pusherRoot := newTestWorkspace(t)
	pusher.Local.BaseURL = srv.URL
	dataPath := writeFile(t, pusherRoot, "data/shared.csv", "push me\n")

	_, err := Add(context.Background(), pusher, []string{dataPath}, AddOptions{})
	require.NoError(t, err)

	summary, err := Push(context.Background(), pusher, nil, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Uploaded)
	require.Equal(t, 0, summary.Failed)

	summary, err = Push(context.Background(), pusher, nil, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Present)
	require.Equal(t, 0, summary.Uploaded)
}

func TestPullDownloadsMissingCacheEntry(t *testing.T) {
	srv, _ := newTestRemote(t)

	pusher, pusherRoot := newTestWorkspace(t)
	pusher.Local.BaseURL = srv.URL
	dataPath := writeFile(t, pusherRoot, "data/shared.csv", "pull me\n")
	_, err := Add(context.Background(), pusher, []string{dataPath}, AddOptions{})
	require.NoError(t, err)
	_, err = Push(context.Background(), pusher, nil, "")
	require.NoError(t, err)

	puller, pullerRoot := newTestWorkspace(t)
	puller.Local.BaseURL = srv.URL
	pulledPath := writeFile(t, pullerRoot, "data/shared.csv", "pull me\n")
	_, err = Add(context.Background(), puller, []string{pulledPath}, AddOptions{})
	require.NoError(t, err)

	// Force a real remote fetch by emptying the puller's local cache; the
	// object still lives in the puller's own external store, but Pull reads
	// straight from the manifest's oid against the remote CAS regardless.
	require.NoError(t, os.RemoveAll(puller.Layout.CacheDir()))

	summary, err := Pull(context.Background(), puller, nil, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Downloaded)
	require.Equal(t, 0, summary.Failed)

	summary, err = Pull(context.Background(), puller, nil, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Cached)
}

func TestPullRejectsCorruptedDownloadAndDoesNotCacheIt(t *testing.T) {
	srv, remoteRoot := newTestRemote(t)

	pusher, pusherRoot := newTestWorkspace(t)
	pusher.Local.BaseURL = srv.URL
	dataPath := writeFile(t, pusherRoot, "data/shared.csv", "trust me\n")
	results, err := Add(context.Background(), pusher, []string{dataPath}, AddOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	id, err := oid.Parse(results[0].Oid)
	require.NoError(t, err)

	_, err = Push(context.Background(), pusher, nil, "")
	require.NoError(t, err)

	// Flip a byte of the object as stored on the remote, simulating bit-rot
	// or a transport-layer corruption the HTTP client didn't catch.
	objPath := filepath.Join(remoteRoot, filepath.FromSlash(id.StoragePath()))
	corrupted, err := os.ReadFile(objPath)
	require.NoError(t, err)
	corrupted[0] ^= 0xFF
	require.NoError(t, os.WriteFile(objPath, corrupted, 0o640))

	puller, pullerRoot := newTestWorkspace(t)
	puller.Local.BaseURL = srv.URL
	pulledPath := writeFile(t, pullerRoot, "data/shared.csv", "trust me\n")
	_, err = Add(context.Background(), puller, []string{pulledPath}, AddOptions{})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(puller.Layout.CacheDir()))

	summary, err := Pull(context.Background(), puller, nil, "")
	require.NoError(t, err)
	require.Equal(t, 0, summary.Downloaded)
	require.Equal(t, 1, summary.Failed)

	has, err := puller.Cache.Has(context.Background(), id)
	require.NoError(t, err)
	require.False(t, has, "corrupted download must never be committed to the cache")
}
