package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthHandler serves liveness and Prometheus metrics outside the versioned API.
type HealthHandler struct {
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

func NewHealthHandler(gatherer prometheus.Gatherer, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{gatherer: gatherer, logger: logger}
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

func (h *HealthHandler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
