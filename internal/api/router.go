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

		// Account endpoints (no auth required)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/forgot-password", s.handleForgotPassword)
		r.Post("/auth/reset-password", s.handleResetPassword)
		r.Get("/auth/verify/{token}", s.handleVerifyEmail)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Audit trail (admin only)
			r.With(s.adminOnlyMiddleware).Get("/audit", s.handleListAudit)

			// User administration
			r.Route("/users", func(r chi.Router) {
				r.Use(s.adminOnlyMiddleware)

				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Put("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Put("/role", s.handleUpdateUserRole)
					r.Put("/block", s.handleBlockUser)
					r.Put("/unblock", s.handleUnblockUser)
					r.Get("/permissions", s.handleListUserPermissions)
					r.Put("/permissions", s.handleSetUserPermissions)
				})
			})

			// Installation endpoints
			r.Route("/installations", func(r chi.Router) {
				r.Get("/", s.handleListInstallations)
				r.With(s.adminOnlyMiddleware).Post("/", s.handleCreateInstallation)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetInstallation)
					r.Put("/", s.handleUpdateInstallation)
					r.With(s.adminOnlyMiddleware).Delete("/", s.handleDeleteInstallation)
					r.Get("/rooms", s.handleListInstallationRooms)
					r.Get("/devices", s.handleListInstallationDevices)
					r.Get("/devices/history", s.handleInstallationHistory)
				})
			})

			// Room endpoints
			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", s.handleListRooms)
				r.Post("/", s.handleCreateRoom)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRoom)
					r.Put("/", s.handleUpdateRoom)
					r.Delete("/", s.handleDeleteRoom)
					r.Get("/devices", s.handleListRoomDevices)
					r.Post("/devices/{deviceID}", s.handleAttachRoomDevice)
					r.Delete("/devices/{deviceID}", s.handleDetachRoomDevice)
				})
			})

			// Device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Put("/", s.handleUpdateDevice)
					r.Delete("/", s.handleDeleteDevice)
					r.Get("/history", s.handleDeviceHistory)
				})
			})
		})

		// WebSocket upgrade. Browser clients cannot set an Authorization
		// header here; identity comes from the single-use ticket instead.
		r.Get("/ws", s.handleWebSocket)
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
