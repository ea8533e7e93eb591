package static

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const indexFile = "index.html"

// Handler serves the browser front-end from a directory mounted at the root URL.
type Handler struct {
	dir   string
	files http.Handler
}

// New creates a static handler rooted at dir.
func New(dir string) *Handler {
	return &Handler{
		dir:   dir,
		files: http.FileServer(http.Dir(dir)),
	}
}

// RegisterRoutes mounts the index and asset routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/*", h.handleAsset)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.dir, indexFile))
}

// handleAsset serves files only; directory listings are not exposed.
func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/") {
		http.NotFound(w, r)
		return
	}
	h.files.ServeHTTP(w, r)
}
