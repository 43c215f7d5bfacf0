package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check behind GET /health.
const healthCheckTimeout = 2 * time.Second

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
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/connect", s.handleConnectDevice)
			})
		})

		r.Route("/scan", func(r chi.Router) {
			r.Get("/", s.handleScanStatus)
			r.Post("/start", s.handleStartScan)
			r.Post("/stop", s.handleStopScan)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Get("/", s.handleListRoutes)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetRoute)
				r.Post("/execute", s.handleExecuteRoute)
			})
		})

		r.Route("/executions", func(r chi.Router) {
			r.Get("/", s.handleListExecutions)
			r.Get("/{id}", s.handleGetExecution)
		})

		r.Post("/blink", s.handleBlinkAll)
		r.Post("/trigger", s.handleTrigger)

		r.Get("/audit", s.handleListAudit)

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status. Any failing component
// check degrades the status but still answers 200 so probes can read it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()

		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	scanning := false
	if s.scanner != nil {
		scanning = s.scanner.Scanning()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
		"devices":    s.registry.Len(),
		"routes":     s.routes.Len(),
		"scanning":   scanning,
	})
}
