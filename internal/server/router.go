package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"calculator-api/internal/calculator"
	"calculator-api/internal/handlers"
	"calculator-api/internal/observability"
)

// NewRouter wires middleware, liveness endpoints, /metrics and the
// calculator API backed by repo.
func NewRouter(repo calculator.Repository) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)
	r.Use(observability.MetricsMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", handlers.Root)
	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler())

	calculator.RegisterRoutes(r, calculator.NewHandler(repo))

	return r
}
