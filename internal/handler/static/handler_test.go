package static

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>CivicConnect</h1>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "js", "chat.js"), []byte("console.log(1)"), 0o644))

	r := chi.NewRouter()
	New(dir).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestServeIndex(t *testing.T) {
	resp := get(setupRouter(t), "/")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "CivicConnect")
}

func TestServeAsset(t *testing.T) {
	resp := get(setupRouter(t), "/js/chat.js")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "console.log(1)", resp.Body.String())
}

func TestNoDirectoryListing(t *testing.T) {
	resp := get(setupRouter(t), "/js/")

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMissingIndex(t *testing.T) {
	r := chi.NewRouter()
	New(t.TempDir()).RegisterRoutes(r)

	resp := get(r, "/")

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
