package monitor

import "time"

type CreateMonitorRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	URL         string  `json:"url" validate:"required,url"`
	Type        string  `json:"type" validate:"omitempty,oneof=http"`
	IntervalSec int32   `json:"interval_sec" validate:"required,gte=10"`
	TimeoutSec  float64 `json:"timeout_sec" validate:"required,gt=0,lte=120"`
	Enabled     *bool   `json:"enabled"`
}

type UpdateMonitorRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	URL         *string  `json:"url" validate:"omitempty,url"`
	IntervalSec *int32   `json:"interval_sec" validate:"omitempty,gte=10"`
	TimeoutSec  *float64 `json:"timeout_sec" validate:"omitempty,gt=0,lte=120"`
	Enabled     *bool    `json:"enabled"`
}

type MonitorResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Type          string     `json:"type"`
	IntervalSec   int32      `json:"interval_sec"`
	TimeoutSec    float64    `json:"timeout_sec"`
	Enabled       bool       `json:"enabled"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type ListMonitorsResponse struct {
	Total    int64             `json:"total"`
	Limit    int32             `json:"limit"`
	Offset   int32             `json:"offset"`
	Monitors []MonitorResponse `json:"monitors"`
}

func toResponse(m Monitor) MonitorResponse {
	return MonitorResponse{
		ID:            m.PublicID.String(),
		Name:          m.Name,
		URL:           m.URL,
		Type:          m.Type,
		IntervalSec:   m.IntervalSec,
		TimeoutSec:    m.TimeoutSec,
		Enabled:       m.Enabled,
		LastCheckedAt: m.LastCheckedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
