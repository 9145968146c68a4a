package monitor

import (
	middle "pulsewatch/internals/middleware"

	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, auth middle.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMonitors)
	r.Get("/{monitorID}", h.GetMonitor)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/", h.CreateMonitor)
		r.Patch("/{monitorID}", h.UpdateMonitor)
		r.Delete("/{monitorID}", h.DeleteMonitor)
	})

	return r
}
