package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/common/middleware"
	"github.com/telhawk-systems/hecrelay/internal/config"
	"github.com/telhawk-systems/hecrelay/internal/handlers"
)

// NewRouter constructs a ServeMux with relay routes registered.
func NewRouter(h *handlers.RelayHandler, logger *logging.Logger) http.Handler {
	mux := http.NewServeMux()

	// Relay endpoint. Method checks are part of the request pipeline.
	mux.HandleFunc("/{$}", h.HandleRelay)

	// Health endpoints
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(AccessLog(logger, mux))
}

// NewHTTPServer applies the configured listen port and timeouts.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
