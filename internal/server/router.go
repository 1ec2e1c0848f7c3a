package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lotas/wegweiser/internal/applog"
)

// Router mounts the WebSocket endpoint on / next to the read-only helpers
// an observer needs to bootstrap.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "connected": s.Connected()})
	})
	r.Get("/anchors", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.anchorMap())
	})
	r.Handle("/", s.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("http.encode", err)
	}
}
