package alert

import (
	middle "pulsewatch/internals/middleware"

	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, auth middle.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAlerts)
	r.Get("/{alertID}", h.GetAlert)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/{alertID}/resolve", h.ResolveAlert)
		r.Post("/{alertID}/acknowledge", h.AcknowledgeAlert)
		r.Post("/bulk-resolve", h.BulkResolve)
	})

	return r
}
