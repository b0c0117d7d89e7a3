// Package server implements the optional HTTP status API: health, version
// and a JSON dump of the tracked servers.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/minewatch/minewatch/internal/store"
	"github.com/minewatch/minewatch/internal/vars"
)

// Server exposes the registry over HTTP for dashboards and scripts.
type Server struct {
	store     *store.Store
	authToken string
}

// New creates the status API handler set.
func New(st *store.Store, authToken string) *Server {
	return &Server{store: st, authToken: authToken}
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))
	mux.Handle("GET /api/servers", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleServers)))

	return LoggingMiddleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(vars.Info())
}

// handleServers returns the serialized registry: every tracked server with
// its roster and chat subscriptions.
func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	data, err := s.store.Serialize()
	if err != nil {
		log.Error().Err(err).Msg("Failed to serialize registry")
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
