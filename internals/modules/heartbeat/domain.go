package heartbeat

import (
	"time"

	"github.com/google/uuid"
)

// Heartbeat tracks an externally pushed liveness signal. It is a data
// entity only; the rule engine does not evaluate heartbeats.
type Heartbeat struct {
	ID                  int64      `json:"id"`
	PublicID            uuid.UUID  `json:"public_id"`
	Name                string     `json:"name"`
	Description         string     `json:"description,omitempty"`
	ExpectedIntervalSec int32      `json:"expected_interval_sec"`
	LastHeartbeatAt     *time.Time `json:"last_heartbeat_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type CreateHeartbeatCmd struct {
	Name                string
	Description         string
	ExpectedIntervalSec int32
}

type UpdateHeartbeatCmd struct {
	Name                *string
	Description         *string
	ExpectedIntervalSec *int32
}
