/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind the proxy
  3. Logger:     Structured request logging (logrus)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the caseworker UI

ROUTE GROUPS:
  /health               Liveness
  /api/assessments      Full recompute
  /api/cases/*          Case text parsing
  /api/salary/*         Salary grid parsing, upload and extraction
  /api/g-table/*        G-regulation table administration
  /api/scenarios/*      Built-in sample cases
  /api/dates/*          Date input helpers

SECURITY NOTE:
  No authentication middleware. The service is deployed behind the
  caseworker portal's gateway, which authenticates every request.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/assessments", h.Assess)

		r.Post("/cases/parse", h.ParseCase)

		r.Route("/salary", func(r chi.Router) {
			r.Post("/parse", h.ParseSalary)
			r.Post("/xlsx", h.UploadSalaryWorkbook)
			r.Post("/extract", h.ExtractSalary)
		})

		r.Route("/g-table", func(r chi.Router) {
			r.Get("/", h.GetGTable)
			r.Put("/{date}", h.PutGTableEntry)
			r.Delete("/{date}", h.DeleteGTableEntry)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/{id}", h.GetScenario)
			r.Post("/{id}/assess", h.AssessScenario)
		})

		r.Get("/dates/format", h.FormatDate)
	})

	return r
}

// requestLogger logs one line per request. Request bodies are never logged;
// they carry case data.
func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			entry := logger.WithFields(logrus.Fields{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			})
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				entry.Error("request failed")
			case ww.Status() >= http.StatusBadRequest:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
		})
	}
}
