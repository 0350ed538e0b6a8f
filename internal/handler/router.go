package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dangerclosesec/portal/internal/auth"
	"github.com/dangerclosesec/portal/internal/middleware"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/dangerclosesec/portal/internal/observability/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Logger         *slog.Logger
	TokenManager   *auth.TokenManager
	AllowedOrigins []string
	RequestTimeout time.Duration

	Auth          *AuthHandler
	Organizations *OrganizationHandler
	Users         *UserHandler
	Reports       *ReportHandler
	Health        *HealthHandler
}

// NewRouter mounts every portal route. Everything except login, health and
// metrics sits behind bearer authentication.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(metrics.HTTPMetricsMiddleware)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.With(chimw.AllowContentType("application/json")).Post("/auth/login", cfg.Auth.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.TokenManager))
		admin := middleware.RequireRole(model.RoleAdmin)

		r.Get("/auth/me", cfg.Auth.MeHandler)

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", cfg.Organizations.List)
			r.Get("/{id}", cfg.Organizations.Get)
			r.With(admin).Post("/", cfg.Organizations.Create)
			r.With(admin).Put("/{id}", cfg.Organizations.Update)
			r.With(admin).Delete("/{id}", cfg.Organizations.Delete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", cfg.Users.List)
			r.Post("/", cfg.Users.Create)
			r.Put("/{id}", cfg.Users.Update)
			r.Put("/{id}/reset-password", cfg.Users.ResetPassword)
			r.Delete("/{id}", cfg.Users.Delete)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", cfg.Reports.List)
			r.Post("/", cfg.Reports.Submit)
			r.Get("/{id}/history", cfg.Reports.History)
			r.Put("/{id}/approve", cfg.Reports.Approve)
			r.Put("/{id}/reject", cfg.Reports.Reject)
			r.With(admin).Delete("/{id}", cfg.Reports.Delete)
		})
	})

	return r
}
