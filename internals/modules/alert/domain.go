package alert

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for display. Alerting logic never branches on it.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

type Alert struct {
	ID           int64      `json:"id"`
	MonitorID    int64      `json:"monitor_id"`
	Severity     Severity   `json:"severity"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Resolved     bool       `json:"resolved"`
	Acknowledged bool       `json:"acknowledged"`
	TriggeredAt  time.Time  `json:"triggered_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Draft is an alert proposed by the rule engine, before deduplication
// and persistence.
type Draft struct {
	MonitorID   int64
	Severity    Severity
	Title       string
	Message     string
	TriggeredAt time.Time
}

// PendingAlert is an undelivered alert joined with its owning monitor, so
// payload construction never goes back to the store per alert.
type PendingAlert struct {
	Alert
	MonitorName string
	MonitorURL  string
}
