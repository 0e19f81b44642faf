package handler

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API router. Organizer routes sit behind the issuer's
// host-token check.
func NewRouter(h *EventHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Post("/host/verify", h.VerifyHost)

	requireHost := h.issuer.RequireHost(writeError)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.With(requireHost).Post("/", h.CreateEvent)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Get("/form", h.GetForm)
			r.Post("/register", h.Register)

			r.Group(func(r chi.Router) {
				r.Use(requireHost)
				r.Patch("/status", h.UpdateEventStatus)
				r.Get("/registrations", h.ListRegistrations)
				r.Get("/registrations/stats", h.RegistrationStats)
				r.Get("/registrations/export", h.ExportRegistrations)
				r.Patch("/registrations/{regID}/status", h.UpdateRegistrationStatus)
			})
		})
	})

	return r
}
