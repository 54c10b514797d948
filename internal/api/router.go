package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/inventory-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Session endpoints (no auth required: they carry their own credentials)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/logout", s.handleLogout)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/auth/me", s.handleMe)

		// User management, guarded by the user.* permissions
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.requirePermission(auth.PermUserRead, s.handleListUsers))
			r.Post("/", s.requirePermission(auth.PermUserCreate, s.handleCreateUser))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.requirePermission(auth.PermUserRead, s.handleGetUser))
				r.Patch("/", s.requirePermission(auth.PermUserUpdate, s.handleUpdateUser))
				r.Delete("/", s.requirePermission(auth.PermUserDelete, s.handleDeactivateUser))
			})
		})

		// Activity history, admin territory via user.read
		r.Get("/audit", s.requirePermission(auth.PermUserRead, s.handleListAuditLogs))
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
