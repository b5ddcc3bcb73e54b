package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAHandler serves a built single-page app from dir. Paths that do not name
// a file fall back to index.html so client-side routes resolve.
type SPAHandler struct {
	dir string
}

// NewSPAHandler creates a new SPAHandler.
func NewSPAHandler(dir string) *SPAHandler {
	return &SPAHandler{dir: dir}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSONError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	full := filepath.Join(h.dir, filepath.FromSlash(clean))
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		if strings.HasPrefix(clean, "/assets/") {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
		http.ServeFile(w, r, full)
		return
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, index)
}
