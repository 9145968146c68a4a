package heartbeat

import (
	middle "pulsewatch/internals/middleware"

	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, auth middle.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListHeartbeats)
	r.Get("/{heartbeatID}", h.GetHeartbeat)
	r.Post("/{heartbeatID}/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/", h.CreateHeartbeat)
		r.Patch("/{heartbeatID}", h.UpdateHeartbeat)
		r.Delete("/{heartbeatID}", h.DeleteHeartbeat)
	})

	return r
}
