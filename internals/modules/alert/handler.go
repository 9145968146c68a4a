package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type MonitorResolver interface {
	Get(ctx context.Context, publicID uuid.UUID) (monitor.Monitor, error)
}

type Handler struct {
	service   *Service
	monitors  MonitorResolver
	validator *validator.Validate
}

func NewHandler(service *Service, monitors MonitorResolver, validator *validator.Validate) *Handler {
	return &Handler{
		service:   service,
		monitors:  monitors,
		validator: validator,
	}
}

// GET /alerts?unresolved=true&severity=error&monitor_id=<uuid>&limit=50&offset=0
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	q := r.URL.Query()

	f := ListFilter{
		UnresolvedOnly: q.Get("unresolved") == "true",
		Limit:          50,
	}
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 32); err == nil && v > 0 {
		f.Limit = int32(v)
	}
	if v, err := strconv.ParseInt(q.Get("offset"), 10, 32); err == nil && v >= 0 {
		f.Offset = int32(v)
	}
	if sevStr := q.Get("severity"); sevStr != "" {
		sev := Severity(sevStr)
		if !sev.Valid() {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid severity")
			return
		}
		f.Severity = &sev
	}
	if midStr := q.Get("monitor_id"); midStr != "" {
		publicID, err := uuid.Parse(midStr)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
			return
		}
		m, err := h.monitors.Get(ctx, publicID)
		if err != nil {
			utils.FromAppError(w, reqID, err)
			return
		}
		f.MonitorID = &m.ID
	}

	alerts, total, err := h.service.List(ctx, f)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	out := make([]AlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, toResponse(alerts[i]))
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", ListAlertsResponse{
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
		Alerts: out,
	})
}

func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid alert id")
		return
	}

	a, err := h.service.Get(ctx, id)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", toResponse(a))
}

func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid alert id")
		return
	}

	a, err := h.service.Resolve(ctx, id)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "alert resolved", toResponse(a))
}

func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	id, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid alert id")
		return
	}

	a, err := h.service.Acknowledge(ctx, id)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "alert acknowledged", toResponse(a))
}

func (h *Handler) BulkResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req BulkResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	publicID, err := uuid.Parse(req.MonitorID)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}
	m, err := h.monitors.Get(ctx, publicID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	var severity *Severity
	if req.Severity != "" {
		sev := Severity(req.Severity)
		if !sev.Valid() {
			utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid severity")
			return
		}
		severity = &sev
	}

	n, err := h.service.BulkResolve(ctx, m.ID, severity)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "alerts resolved", BulkResolveResponse{Resolved: n})
}
