package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/catalog"
	"github.com/frahmantamala/backoffice-access/internal/grant"
	"github.com/frahmantamala/backoffice-access/internal/override"
	"github.com/frahmantamala/backoffice-access/internal/transport/middleware"
	"github.com/frahmantamala/backoffice-access/internal/transport/swagger"
	"github.com/frahmantamala/backoffice-access/internal/user"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
)

// Handlers groups everything RegisterAllRoutes mounts. A nil handler skips
// its routes.
type Handlers struct {
	Auth     *auth.Handler
	Guard    *auth.Guard
	User     *user.Handler
	Grant    *grant.Handler
	Override *override.Handler
	Catalog  *catalog.Handler
	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	// OpenAPIPath is the file served at /openapi.yml.
	OpenAPIPath string
}

func RegisterAllRoutes(router chi.Router, db *sql.DB, redisClient redis.UniversalClient, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, redisClient)

	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	openAPIPath := h.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	if h.Metrics != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, h.Metrics)
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
			sr.With(h.Auth.AuthMiddleware).Get("/validate", h.Auth.Validate)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
			}

			if h.Grant != nil {
				pr.Get("/users/permissions", h.Grant.GetPermissions)
				pr.With(h.Guard.RequireManageUsers()).Get("/users/{userID}/permissions", h.Grant.GetUserPermissions)
			}

			if h.Override != nil {
				pr.Route("/users/{userID}/overrides", func(or chi.Router) {
					or.Use(h.Guard.RequireManagePermissions())
					or.Get("/", h.Override.ListOverrides)
					or.Post("/", h.Override.CreateOverride)
					or.Delete("/{overrideID}", h.Override.DeleteOverride)
				})
			}

			if h.Catalog != nil {
				pr.Get("/modules", h.Catalog.GetModules)
				pr.With(h.Guard.RequireModuleParam("moduleID", access.ActionView)).Get("/modules/{moduleID}/forms", h.Catalog.GetForms)
			}
		})
	})
}
