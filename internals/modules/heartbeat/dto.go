package heartbeat

import "time"

type CreateHeartbeatRequest struct {
	Name                string `json:"name" validate:"required,max=200"`
	Description         string `json:"description" validate:"max=1000"`
	ExpectedIntervalSec int32  `json:"expected_interval_sec" validate:"required,gte=10"`
}

type UpdateHeartbeatRequest struct {
	Name                *string `json:"name" validate:"omitempty,max=200"`
	Description         *string `json:"description" validate:"omitempty,max=1000"`
	ExpectedIntervalSec *int32  `json:"expected_interval_sec" validate:"omitempty,gte=10"`
}

type HeartbeatResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Description         string     `json:"description,omitempty"`
	ExpectedIntervalSec int32      `json:"expected_interval_sec"`
	LastHeartbeatAt     *time.Time `json:"last_heartbeat_at"`
	Healthy             bool       `json:"healthy"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type ListHeartbeatsResponse struct {
	Total      int64               `json:"total"`
	Limit      int32               `json:"limit"`
	Offset     int32               `json:"offset"`
	Heartbeats []HeartbeatResponse `json:"heartbeats"`
}

func toResponse(hb Heartbeat, now time.Time) HeartbeatResponse {
	return HeartbeatResponse{
		ID:                  hb.PublicID.String(),
		Name:                hb.Name,
		Description:         hb.Description,
		ExpectedIntervalSec: hb.ExpectedIntervalSec,
		LastHeartbeatAt:     hb.LastHeartbeatAt,
		Healthy:             hb.Healthy(now),
		CreatedAt:           hb.CreatedAt,
		UpdatedAt:           hb.UpdatedAt,
	}
}
