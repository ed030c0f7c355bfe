package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	logging "balance-watch/internal/infra/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes /metrics and /healthz.
type Server struct {
	server  *http.Server
	started time.Time
}

func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	s := &Server{started: time.Now()}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.health)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start serves in the background; a listen failure is logged, monitoring continues without metrics.
func (s *Server) Start() {
	go func() {
		logging.LogInfo("Metrics server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError("Metrics server failed", zap.String("addr", s.server.Addr), zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "UP",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"checked": time.Now().UTC().Format(time.RFC3339),
	})
}
