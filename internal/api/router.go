package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Every /api request passes through authentication and then the access
// matrix before it reaches a handler, including requests for paths no
// handler serves, so an anonymous caller probing an unknown protected
// path sees 401 rather than 404.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		s.corsMiddleware(),
		middleware.RequestSize(maxRequestBodySize),
	)

	// Liveness probe, outside the access matrix
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticateMiddleware)
		r.Use(s.authorizeMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/change-password", s.handleChangePassword)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/reset-password", s.handleResetPassword)
			r.Get("/me", s.handleMe)
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", s.handleProfile)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/users", s.handleListUsers)
			r.Put("/ban/{userID}", s.handleBanUser)
			r.Put("/unban/{userID}", s.handleUnbanUser)
			r.Put("/promote/{userID}", s.handlePromoteUser)
			r.Get("/audit", s.handleListEvents)
			r.Get("/metrics", s.handleMetrics)
		})
	})

	return r
}

// handleHealth reports whether the server can reach its database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "unavailable",
				"version": s.version,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
