/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for a frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/patterns", func(r chi.Router) {
			r.Post("/validate", h.ValidatePattern)
			r.Post("/preview", h.PreviewPattern)
			r.Post("/", h.CreatePattern)
			r.Get("/", h.ListPatterns)
			r.Post("/{id}/generate", h.GenerateShifts)
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Post("/{id}/clock-in", h.ClockIn)
			r.Post("/{id}/clock-out", h.ClockOut)
			r.Post("/{id}/cancel", h.CancelShift)
			r.Delete("/{id}", h.DeleteShift)
		})

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Get("/current", h.CurrentPeriod)
			r.Get("/{id}/summary", h.PeriodSummary)
			r.Get("/{id}/prediction", h.PeriodPrediction)
		})

		r.Post("/recalculate", h.RecalculateAll)

		r.Route("/profiles", func(r chi.Router) {
			r.Put("/{owner}", h.PutProfile)
			r.Get("/{owner}", h.GetProfile)
		})
	})

	return r
}
