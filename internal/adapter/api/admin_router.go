package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/leadhub/internal/adapter/api/handler"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
)

// NewAdminRouter creates the internal router: health, metrics and outbox administration.
func NewAdminRouter(outbox handler.OutboxAdmin, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))

	adminHandler := handler.NewAdminHandler(outbox, logger)

	r.Get("/health", adminHandler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/admin/outbox", func(r chi.Router) {
		r.Get("/", adminHandler.GetInfo)
		r.Get("/pending", adminHandler.GetPendingSummary)
		r.Get("/dlq", adminHandler.ListDeadLetters)
		r.Post("/dlq/requeue", adminHandler.RequeueDeadLetters)
		r.Post("/dlq/trim", adminHandler.TrimDeadLetters)
	})

	return r
}
