package alerting

import "context"

// Payload is the channel-agnostic shape of one alert delivery.
type Payload struct {
	AlertID     int64  `json:"alert_id"`
	MonitorName string `json:"monitor_name"`
	MonitorURL  string `json:"monitor_url,omitempty"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
}

// Channel delivers alerts to one destination. Send returning nil means the
// alert reached at least one recipient.
type Channel interface {
	Name() string
	ValidateConfig() error
	Send(ctx context.Context, p Payload) error
}

func severityColor(severity string) string {
	switch severity {
	case "critical":
		return "#8b0000"
	case "error":
		return "#ff0000"
	case "warning":
		return "#ff9900"
	case "info":
		return "#36a64f"
	}
	return "#808080"
}
