package heartbeat

import (
	"encoding/json"
	"net/http"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"strconv"
	"time"

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

func (h *Handler) CreateHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req CreateHeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	hb, err := h.service.Create(ctx, CreateHeartbeatCmd{
		Name:                req.Name,
		Description:         req.Description,
		ExpectedIntervalSec: req.ExpectedIntervalSec,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, reqID, "heartbeat created", toResponse(hb, time.Now()))
}

func (h *Handler) GetHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "heartbeatID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid heartbeat id")
		return
	}

	hb, err := h.service.Get(ctx, publicID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", toResponse(hb, time.Now()))
}

func (h *Handler) ListHeartbeats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	limit := int32(50)
	var offset int32
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32); err == nil && v > 0 {
		limit = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32); err == nil && v >= 0 {
		offset = int32(v)
	}

	beats, total, err := h.service.List(ctx, limit, offset)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	now := time.Now()
	out := make([]HeartbeatResponse, 0, len(beats))
	for i := range beats {
		out = append(out, toResponse(beats[i], now))
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", ListHeartbeatsResponse{
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		Heartbeats: out,
	})
}

func (h *Handler) UpdateHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "heartbeatID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid heartbeat id")
		return
	}

	var req UpdateHeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	hb, err := h.service.Update(ctx, publicID, UpdateHeartbeatCmd{
		Name:                req.Name,
		Description:         req.Description,
		ExpectedIntervalSec: req.ExpectedIntervalSec,
	})
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "heartbeat updated", toResponse(hb, time.Now()))
}

func (h *Handler) DeleteHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "heartbeatID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid heartbeat id")
		return
	}

	if err := h.service.Delete(ctx, publicID); err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ping is called by the monitored job itself, so it stays unauthenticated.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "heartbeatID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid heartbeat id")
		return
	}

	hb, err := h.service.Ping(ctx, publicID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "heartbeat recorded", toResponse(hb, time.Now()))
}
