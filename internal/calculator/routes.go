package calculator

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts all calculator endpoints onto the given router
// under the /api/calculator prefix.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/calculator", func(r chi.Router) {
		r.Post("/calculate", h.Calculate)
		r.Get("/history", h.History)
		r.Delete("/history", h.ClearHistory)
	})
}
