package check

import "time"

// Result is one finished probe. A record covers the whole retry chain of a
// probe; only the final outcome is kept. Immutable once persisted.
type Result struct {
	ID           int64     `json:"id"`
	MonitorID    int64     `json:"monitor_id"`
	StatusCode   *int      `json:"status_code"`
	LatencyMS    *float64  `json:"latency_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}
