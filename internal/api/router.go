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

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/verify-mfa", s.handleVerifyMfa)
		r.Post("/auth/refresh-token", s.handleRefresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)

			r.Route("/systems", func(r chi.Router) {
				r.Get("/", s.handleListSystems)

				r.Route("/{systemID}", func(r chi.Router) {
					r.Get("/", s.handleGetSystem)
					r.Get("/panel", s.handleGetPanel)

					r.Post("/arm-stay", s.handleArmStay)
					r.Post("/arm-away", s.handleArmAway)
					r.Post("/disarm", s.handleDisarm)
					r.Post("/trigger-alarm", s.handleTriggerAlarm)
					r.Post("/trigger-emergency", s.handleTriggerEmergency)
					r.Post("/reboot", s.handleRebootPanel)
					r.Get("/software-update", s.handleGetSoftwareUpdate)
					r.Post("/software-update", s.handleStartSoftwareUpdate)

					r.Route("/devices", func(r chi.Router) {
						r.Get("/", s.handleListDevices)

						r.Route("/{deviceID}", func(r chi.Router) {
							r.Get("/", s.handleGetDevice)

							r.Post("/lock", s.handleLock)
							r.Post("/unlock", s.handleUnlock)
							r.Post("/on", s.handleSwitchOn)
							r.Post("/off", s.handleSwitchOff)
							r.Put("/level", s.handleSetLevel)
							r.Post("/open", s.handleGarageOpen)
							r.Post("/close", s.handleGarageClose)
							r.Post("/bypass", s.handleBypass)
							r.Post("/unbypass", s.handleUnbypass)
							r.Put("/thermostat", s.handleSetThermostat)

							r.Post("/snapshot", s.handleSnapshot)
							r.Get("/rtsp", s.handleRTSPURL)
							r.Post("/reboot", s.handleRebootCamera)
							r.Put("/privacy", s.handleSetPrivacy)
							r.Put("/deter", s.handleSetDeter)
							r.Put("/chime-extender", s.handleSetChimeExtender)
						})
					})
				})
			})

			r.Get("/events", s.handleListEvents)
		})
	})

	// WebSocket event relay (auth via token query parameter)
	r.Get("/ws/events", s.handleEventsSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
