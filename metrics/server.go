package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eddielth/rainwise2mqtt/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics and /healthz
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP server. connected reports broker connectivity.
func NewServer(addr string, gatherer prometheus.Gatherer, connected func() bool) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", NewHealthHandler(connected))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		logger.Info("metrics listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error: %v", err)
		}
	}()
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthHandler struct {
	connected func() bool
}

// NewHealthHandler reports ok while the broker connection is up and 503 otherwise
func NewHealthHandler(connected func() bool) http.Handler {
	return &healthHandler{connected: connected}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status        string `json:"status"`
		MQTTConnected bool   `json:"mqtt_connected"`
	}
	st := status{Status: "ok", MQTTConnected: h.connected != nil && h.connected()}

	w.Header().Set("Content-Type", "application/json")
	if !st.MQTTConnected {
		st.Status = "down"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}
