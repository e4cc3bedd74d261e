package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/metrics", s.handleMetrics)
			r.Get("/kinds", s.handleListKinds)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/stats", s.handleDeviceStats)

				r.Route("/{udn}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Get("/services", s.handleGetDeviceServices)
					r.Get("/tree", s.handleGetDeviceTree)
					r.With(s.requireRole(RoleOperator)).Delete("/", s.handleDeleteDevice)
				})
			})

			r.Route("/discovery", func(r chi.Router) {
				r.Get("/status", s.handleDiscoveryStatus)
				r.Get("/scans", s.handleListScans)
				r.With(s.requireRole(RoleOperator)).Post("/scan", s.handleScan)
			})

			// WebSocket (browsers pass the token as a query parameter)
			r.Get("/ws", s.handleWebSocket)
		})
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
