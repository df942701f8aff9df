package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duongtq/conveyor/internal/pipeline/worker"
)

// StatusFunc supplies the current task statuses for health checks.
type StatusFunc func() []worker.Status

// Server provides HTTP endpoints for health monitoring and metrics.
type Server struct {
	status StatusFunc
	server *http.Server
}

// NewServer creates a new health server.
func NewServer(status StatusFunc, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		status: status,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	statuses := s.status()
	healthy := true
	for _, st := range statuses {
		if !st.Running {
			healthy = false
			break
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "critical"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	type taskStatus struct {
		Name          string `json:"name"`
		Running       bool   `json:"running"`
		TotalFailures int64  `json:"total_failures"`
	}

	statuses := s.status()
	out := make([]taskStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, taskStatus{
			Name:          st.Name,
			Running:       st.Running,
			TotalFailures: st.TotalFailures,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
