package monitor

import (
	"encoding/json"
	"net/http"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service, validator *validator.Validate) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
	}
}

func (h *Handler) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req CreateMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	cmd := CreateMonitorCmd{
		Name:        req.Name,
		URL:         req.URL,
		Type:        req.Type,
		IntervalSec: req.IntervalSec,
		TimeoutSec:  req.TimeoutSec,
		Enabled:     true,
	}
	if cmd.Type == "" {
		cmd.Type = TypeHTTP
	}
	if req.Enabled != nil {
		cmd.Enabled = *req.Enabled
	}

	m, err := h.service.Create(ctx, cmd)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, reqID, "monitor created", toResponse(m))
}

func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "monitorID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	m, err := h.service.Get(ctx, publicID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", toResponse(m))
}

// GET /monitors?limit=50&offset=0&enabled=true
func (h *Handler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	limit, offset := pagination(r)
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	monitors, total, err := h.service.List(ctx, limit, offset, enabledOnly)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	out := make([]MonitorResponse, 0, len(monitors))
	for i := range monitors {
		out = append(out, toResponse(monitors[i]))
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", ListMonitorsResponse{
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		Monitors: out,
	})
}

func (h *Handler) UpdateMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "monitorID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	var req UpdateMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	m, err := h.service.Update(ctx, publicID, UpdateMonitorCmd{
		Name:        req.Name,
		URL:         req.URL,
		IntervalSec: req.IntervalSec,
		TimeoutSec:  req.TimeoutSec,
		Enabled:     req.Enabled,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "monitor updated", toResponse(m))
}

func (h *Handler) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "monitorID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	if err := h.service.Delete(ctx, publicID); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pagination(r *http.Request) (limit, offset int32) {
	limit = 50
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32); err == nil && v > 0 {
		limit = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32); err == nil && v >= 0 {
		offset = int32(v)
	}
	return limit, offset
}
