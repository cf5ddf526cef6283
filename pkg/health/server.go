package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetlab/corectl/pkg/storage"
)

// Server exposes the control plane's own liveness and readiness endpoints.
// Liveness reports the process is up; readiness additionally confirms the
// storage layer is reachable, matching spec §6's health contract.
type Server struct {
	store     storage.Store
	startedAt time.Time
}

// NewServer wraps a Store for readiness probing.
func NewServer(store storage.Store) *Server {
	return &Server{store: store, startedAt: time.Now()}
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Liveness always reports healthy once the process can serve HTTP at all.
func (s *Server) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, healthResponse{Status: "healthy", Uptime: time.Since(s.startedAt).String()})
}

// Readiness reports unhealthy if the storage layer cannot be listed, which
// is the control plane's only hard external dependency at startup.
func (s *Server) Readiness(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListWorkers(); err != nil {
		writeHealth(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}
	writeHealth(w, http.StatusOK, healthResponse{Status: "healthy", Uptime: time.Since(s.startedAt).String()})
}

func writeHealth(w http.ResponseWriter, status int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
