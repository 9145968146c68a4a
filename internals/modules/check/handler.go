package check

import (
	"context"
	"net/http"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MonitorResolver maps a public monitor id to the monitor record.
type MonitorResolver interface {
	Get(ctx context.Context, publicID uuid.UUID) (monitor.Monitor, error)
}

type Handler struct {
	results  *Repository
	monitors MonitorResolver
}

func NewHandler(results *Repository, monitors MonitorResolver) *Handler {
	return &Handler{
		results:  results,
		monitors: monitors,
	}
}

type ResultResponse struct {
	ID           int64     `json:"id"`
	StatusCode   *int      `json:"status_code"`
	LatencyMS    *float64  `json:"latency_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

type ListResultsResponse struct {
	MonitorID string           `json:"monitor_id"`
	Results   []ResultResponse `json:"results"`
}

// GET /monitors/{monitorID}/checks?limit=50
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	publicID, err := uuid.Parse(chi.URLParam(r, "monitorID"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid monitor id")
		return
	}

	m, err := h.monitors.Get(ctx, publicID)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	limit := int32(50)
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32); err == nil && v > 0 && v <= 500 {
		limit = int32(v)
	}

	results, err := h.results.Recent(ctx, m.ID, limit)
	if err != nil {
		utils.FromAppError(w, reqID, err)
		return
	}

	out := make([]ResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, ResultResponse{
			ID:           res.ID,
			StatusCode:   res.StatusCode,
			LatencyMS:    res.LatencyMS,
			Success:      res.Success,
			ErrorMessage: res.ErrorMessage,
			CheckedAt:    res.CheckedAt,
		})
	}
	utils.WriteJSON(w, http.StatusOK, reqID, "", ListResultsResponse{
		MonitorID: publicID.String(),
		Results:   out,
	})
}
