package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"moby-metaserver/internal/cache"
	"moby-metaserver/internal/handlers"
	"moby-metaserver/internal/moby"
)

type stubClient struct{}

func (stubClient) Platforms(ctx context.Context) ([]moby.Platform, error) {
	return []moby.Platform{{ID: 2, Name: "DOS"}}, nil
}

func (stubClient) FindTitle(ctx context.Context, title, platformID string) ([]moby.GameSummary, error) {
	return []moby.GameSummary{{MobyID: 1, Title: title}}, nil
}

func (stubClient) GetGame(ctx context.Context, gameID string) (moby.GameRecord, error) {
	return moby.GameRecord(`{"game_id":1,"title":"Doom"}`), nil
}

func (stubClient) GetGameForPlatform(ctx context.Context, gameID, platformID string) (moby.GameRecord, error) {
	return moby.GameRecord(`{"game_id":1,"platform_name":"DOS"}`), nil
}

func (stubClient) Covers(ctx context.Context, gameID, platformID string) ([]byte, error) {
	return []byte(`[]`), nil
}

func (stubClient) CoverImage(ctx context.Context, gameID, platformID string) (moby.Image, error) {
	return moby.Image{Data: []byte("png"), ContentType: "image/png"}, nil
}

type staticPage struct{}

func (staticPage) Render() (string, error) { return "<html>index</html>", nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cssDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cssDir, "site.css"), []byte("body{}"), 0o644))

	h := handlers.NewMetadataHandler(stubClient{}, cache.NewMemoryStore(), staticPage{})
	r := chi.NewRouter()
	SetupRouter(r, zaptest.NewLogger(t), h, Options{
		RequestTimeout: time.Second,
		CSSDir:         cssDir,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestRouterServesLauncherRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/platformid?platform=dos")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.EqualValues(t, 2, out["platform_id"])

	resp, body = get(t, srv.URL+"/find?title=Doom")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Ok", out["status"])

	resp, body = get(t, srv.URL+"/index")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>index</html>", string(body))
}

func TestRouterStaticAndHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/css/site.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{}", string(body))

	resp, _ = get(t, srv.URL+"/js/app.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestRouterRejectsOtherMethods(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/purge", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
