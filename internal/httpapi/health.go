package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Redis    string `json:"redis"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// health returns 200 when Redis and the database answer within two seconds,
// 503 otherwise.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Redis: "connected", Database: "connected"}
	var failures []string

	if err := s.state.Ping(ctx); err != nil {
		resp.Redis = "disconnected"
		failures = append(failures, "redis: "+err.Error())
	}
	if err := s.svc.Store().Ping(ctx); err != nil {
		resp.Database = "disconnected"
		failures = append(failures, "database: "+err.Error())
	}

	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Error = strings.Join(failures, "; ")
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
