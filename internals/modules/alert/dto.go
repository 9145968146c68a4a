package alert

import "time"

type AlertResponse struct {
	ID           int64      `json:"id"`
	MonitorID    int64      `json:"monitor_id"`
	Severity     string     `json:"severity"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Resolved     bool       `json:"resolved"`
	Acknowledged bool       `json:"acknowledged"`
	TriggeredAt  time.Time  `json:"triggered_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ListAlertsResponse struct {
	Total  int64           `json:"total"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
	Alerts []AlertResponse `json:"alerts"`
}

type BulkResolveRequest struct {
	MonitorID string `json:"monitor_id" validate:"required,uuid"`
	Severity  string `json:"severity" validate:"omitempty,oneof=info warning error critical"`
}

type BulkResolveResponse struct {
	Resolved int64 `json:"resolved"`
}

func toResponse(a Alert) AlertResponse {
	return AlertResponse{
		ID:           a.ID,
		MonitorID:    a.MonitorID,
		Severity:     string(a.Severity),
		Title:        a.Title,
		Message:      a.Message,
		Resolved:     a.Resolved,
		Acknowledged: a.Acknowledged,
		TriggeredAt:  a.TriggeredAt,
		ResolvedAt:   a.ResolvedAt,
		CreatedAt:    a.CreatedAt,
	}
}
