package monitor

import (
	"time"

	"github.com/google/uuid"
)

const TypeHTTP = "http"

type Monitor struct {
	ID            int64      `json:"id"`
	PublicID      uuid.UUID  `json:"public_id"`
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

func (m Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalSec) * time.Second
}

func (m Monitor) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec * float64(time.Second))
}

// IsDue reports whether the monitor needs a probe at time t. Never-checked
// monitors are due immediately; otherwise due-ness is monotonic in t.
func (m Monitor) IsDue(t time.Time) bool {
	if !m.Enabled {
		return false
	}
	if m.LastCheckedAt == nil {
		return true
	}
	return t.Sub(*m.LastCheckedAt) >= m.Interval()
}

type CreateMonitorCmd struct {
	Name        string
	URL         string
	Type        string
	IntervalSec int32
	TimeoutSec  float64
	Enabled     bool
}

type UpdateMonitorCmd struct {
	Name        *string
	URL         *string
	IntervalSec *int32
	TimeoutSec  *float64
	Enabled     *bool
}
