// Package router assembles the dashboard HTTP API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hawksec/hawk/internal/api/handlers"
	"github.com/hawksec/hawk/internal/api/middleware"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/config"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/metrics"
)

// Handlers groups the HTTP handlers of the API
type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Alert        *handlers.AlertHandler
	Progress     *handlers.ProgressHandler
	Notification *handlers.NotificationHandler
	Stream       *handlers.StreamHub
	OEM          *handlers.OEMHandler
	Scan         *handlers.ScanHandler
	Settings     *handlers.SettingsHandler
	Overview     *handlers.OverviewHandler
	Chat         *handlers.ChatHandler
	Report       *handlers.ReportHandler
}

// NewHandlers builds every handler over a
func NewHandlers(a *app.App, log *logger.Logger) *Handlers {
	return &Handlers{
		Health:       handlers.NewHealthHandler(a, log),
		Auth:         handlers.NewAuthHandler(a.Client(), a, log),
		Alert:        handlers.NewAlertHandler(log),
		Progress:     handlers.NewProgressHandler(log),
		Notification: handlers.NewNotificationHandler(log),
		Stream:       handlers.NewStreamHub(log, 0),
		OEM:          handlers.NewOEMHandler(log),
		Scan:         handlers.NewScanHandler(log),
		Settings:     handlers.NewSettingsHandler(log),
		Overview:     handlers.NewOverviewHandler(log),
		Chat:         handlers.NewChatHandler(log),
		Report:       handlers.NewReportHandler(log),
	}
}

// New returns the API router. sessions resolves the caller of protected
// routes from their access token.
func New(cfg *config.Config, log *logger.Logger, sessions middleware.SessionLookup, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	if cfg.Metrics.Enabled {
		r.Use(metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins, cfg.Server.Environment))
	r.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/register", h.Auth.Register)
			r.Post("/auth/refresh", h.Auth.Refresh)
			r.Get("/solution-templates", h.Progress.Templates)
		})

		// Protected routes (require an open session)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(sessions, cfg.Backend.JWTSecret))

			r.Post("/auth/logout", h.Auth.Logout)
			r.Get("/auth/me", h.Auth.Me)

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", h.Alert.List)
				r.Post("/refresh", h.Alert.Refresh)
				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/status", h.Alert.UpdateStatus)
					r.Get("/recommendations", h.Alert.Recommendations)
					r.Get("/risk", h.Alert.Risk)

					r.Get("/progress", h.Progress.Get)
					r.Delete("/progress", h.Progress.Reset)
					r.Post("/progress/steps/{step}", h.Progress.ToggleStep)
					r.Put("/progress/template", h.Progress.SelectTemplate)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/stream", h.Stream.HandleStream)
				r.Post("/read-all", h.Notification.MarkAllRead)
				r.Post("/{id}/read", h.Notification.MarkRead)
			})

			r.Route("/oem-sources", func(r chi.Router) {
				r.Get("/", h.OEM.List)
				r.Post("/", h.OEM.Create)
				r.Get("/search", h.OEM.Search)
				r.Patch("/{id}", h.OEM.Update)
				r.Delete("/{id}", h.OEM.Delete)
				r.Post("/{id}/test", h.OEM.Test)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/notifications", h.Settings.GetNotifications)
				r.Put("/notifications", h.Settings.SaveNotifications)
				r.Post("/notifications/test", h.Settings.TestNotification)
				r.Get("/monitoring", h.Settings.GetMonitoring)
				r.Put("/monitoring", h.Settings.SaveMonitoring)
				r.Get("/rules", h.Settings.GetRules)
				r.Put("/rules", h.Settings.SaveRules)
			})

			r.Route("/overview", func(r chi.Router) {
				r.Get("/systems", h.Overview.Systems)
				r.Get("/stats", h.Overview.Stats)
				r.Get("/trends", h.Overview.Trends)
				r.Get("/summary", h.Overview.Summary)
			})

			r.Get("/reports/security.pdf", h.Report.SecurityPDF)

			// remote function calls
			r.Group(func(r chi.Router) {
				r.Use(middleware.UserRateLimit(1, 5))
				r.Post("/scans", h.Scan.Run)
				r.Post("/chat", h.Chat.Send)
			})
		})
	})

	return r
}
