package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/V4T54L/leadhub/internal/adapter/api/handler"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/pkg/config"
)

// Services bundles what the public router serves.
type Services struct {
	Tokens   middleware.TenantResolver
	Ingester handler.LeadIngester
	Leads    handler.LeadService
	Settings handler.WebhookSettingsService
	Agencies handler.AgencyService
	Users    handler.UserAdminService
	Verifier middleware.TokenVerifier
	Sessions middleware.SessionGate
	Feed     http.Handler
}

// NewRouter creates and configures the public HTTP router.
func NewRouter(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	webhookHandler := handler.NewLeadWebhookHandler(svc.Ingester, logger, cfg.MaxWebhookBodyBytes, m)
	leadHandler := handler.NewLeadHandler(svc.Leads, logger, cfg.MaxWebhookBodyBytes)
	settingsHandler := handler.NewSettingsHandler(svc.Settings, logger)
	agencyHandler := handler.NewAgencyHandler(svc.Agencies, logger)
	userHandler := handler.NewUserHandler(svc.Users, logger)
	limiter := middleware.NewTenantRateLimiter(cfg.InboundRateLimitRPS, cfg.InboundRateLimitBurst)

	r.Route("/api", func(api chi.Router) {
		// Inbound webhook: receive token, no user session.
		api.With(
			middleware.WebhookAuth(svc.Tokens, logger, m),
			middleware.RateLimit(limiter, m),
		).Post("/webhooks/leads", webhookHandler.ServeHTTP)

		api.Group(func(app chi.Router) {
			app.Use(middleware.Session(svc.Verifier, svc.Sessions, logger))

			app.Post("/leads", leadHandler.Create)
			app.Get("/leads", leadHandler.List)
			app.Get("/leads/stream", svc.Feed.ServeHTTP)

			app.Get("/settings/webhook", settingsHandler.Get)
			app.Put("/settings/webhook", settingsHandler.Update)
			app.Post("/settings/webhook/token", settingsHandler.RotateToken)
			app.Post("/settings/webhook/test", settingsHandler.SendTest)

			app.Post("/admin/agencies", agencyHandler.Create)
			app.Get("/admin/agencies", agencyHandler.List)
			app.Patch("/admin/agencies/{id}/status", agencyHandler.SetStatus)
			app.Get("/admin/users", userHandler.List)
			app.Patch("/admin/users/{id}", userHandler.Update)
		})
	})

	return r
}
