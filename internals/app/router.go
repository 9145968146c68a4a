package app

import (
	"net/http"
	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/heartbeat"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func RegisterRoutes(c *Container) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middle.Logger(c.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", c.health)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Post("/auth/login", c.authHandler.Login)

		v1.Mount("/monitors", monitor.Routes(c.monitorHandler, c.authMW.Handle))
		v1.Get("/monitors/{monitorID}/checks", c.checkHandler.ListResults)
		v1.Mount("/alerts", alert.Routes(c.alertHandler, c.authMW.Handle))
		v1.Mount("/heartbeats", heartbeat.Routes(c.heartbeatHandler, c.authMW.Handle))

		// guarded by the shared webhook secret, not by operator auth
		if c.telegramHandler != nil {
			v1.Post("/integrations/telegram/webhook", c.telegramHandler.Webhook)
		}

		v1.Get("/stats", c.stats)
	})

	return r
}

func (c *Container) health(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	if err := c.DB.Ping(r.Context()); err != nil {
		utils.WriteError(w, http.StatusServiceUnavailable, reqID, apperror.DatabaseErr, "database unreachable")
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "ok", struct{}{})
}

type statsResponse struct {
	Monitors         int64 `json:"monitors"`
	EnabledMonitors  int64 `json:"enabled_monitors"`
	TotalChecks      int64 `json:"total_checks"`
	FailedChecks     int64 `json:"failed_checks"`
	UnresolvedAlerts int64 `json:"unresolved_alerts"`
	Heartbeats       int64 `json:"heartbeats"`

	// from the redis snapshot; omitted when redis is not configured
	MonitorsUp   *int64 `json:"monitors_up,omitempty"`
	MonitorsDown *int64 `json:"monitors_down,omitempty"`
}

func (c *Container) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var (
		out statsResponse
		err error
	)
	if out.Monitors, err = c.monitorRepo.Count(ctx, false); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	if out.EnabledMonitors, err = c.monitorRepo.Count(ctx, true); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	if out.TotalChecks, err = c.checkRepo.Count(ctx, false); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	if out.FailedChecks, err = c.checkRepo.Count(ctx, true); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	if out.UnresolvedAlerts, err = c.alertRepo.CountUnresolved(ctx); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	if out.Heartbeats, err = c.heartbeatRepo.Count(ctx); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	// redis being down degrades stats, it must not fail them
	if c.RedisClient != nil {
		statuses, err := c.RedisClient.LastStatuses(ctx)
		if err != nil {
			c.Logger.Warn().Err(err).Msg("failed to read status snapshot")
		} else {
			var up, down int64
			for _, isUp := range statuses {
				if isUp {
					up++
				} else {
					down++
				}
			}
			out.MonitorsUp = &up
			out.MonitorsDown = &down
		}
	}

	utils.WriteJSON(w, http.StatusOK, reqID, "", out)
}
