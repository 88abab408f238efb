package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Runs
	mux.Handle("POST /api/v1/runs", chain(http.HandlerFunc(h.CreateRun)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("GET /api/v1/workflows/{name}/runs", chain(http.HandlerFunc(h.ListWorkflowRuns)))

	// Service
	mux.Handle("GET /healthz", http.HandlerFunc(h.Health))
	if h.gatherer != nil {
		mux.Handle("GET "+h.metrics, promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// Routes возвращает mux со всеми маршрутами.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}
