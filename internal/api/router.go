package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/graydb/internal/auth"
)

const (
	defaultQueryListLimit = 100
	healthCheckTimeout    = 2 * time.Second
)

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "not found")
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		// Ticket-authenticated in the handler.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermStatsRead))
				r.Get("/stats", s.handleStats)
				r.Get("/queries", s.handleQueries)
				r.Get("/system", s.handleSystem)
			})

			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAudit)
			r.With(s.requirePermission(auth.PermQueryExecute)).Post("/query", s.handleQuery)
		})
	})

	return r
}

// handleHealth reports liveness plus the state of the audit store and broker.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"drivers": s.registry.Drivers(),
	}

	if s.auditDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.auditDB.HealthCheck(ctx); err != nil {
			resp["status"] = "degraded"
			resp["audit_store"] = "unavailable"
		} else {
			resp["audit_store"] = "ok"
		}
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleStats returns the shared collector counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Collector().Snapshot())
}

// handleQueries returns the most recent executed statements, oldest first.
//
// Query parameters:
//   - limit: max results (default 100); 0 or negative returns everything retained
func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	limit := defaultQueryListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}

	list := s.registry.Collector().QueryList()
	total := len(list)
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"queries": list,
		"total":   total,
	})
}
