package rule

import (
	"context"
	"fmt"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/check"
	"pulsewatch/pkg/apperror"
	"strings"
	"time"
)

type Type string

const (
	TypeConsecutiveFailures Type = "consecutive_failures"
	TypeLatencyThreshold    Type = "latency_threshold"
	TypeErrorRate           Type = "error_rate"
	TypeUptimePercentage    Type = "uptime_percentage"
	TypeStatusCodePattern   Type = "status_code_pattern"
)

func (t Type) Valid() bool {
	switch t {
	case TypeConsecutiveFailures, TypeLatencyThreshold, TypeErrorRate,
		TypeUptimePercentage, TypeStatusCodePattern:
		return true
	}
	return false
}

// Config describes one evaluation rule attached to a monitor.
type Config struct {
	Type          Type
	Threshold     float64
	WindowMinutes int
	Severity      alert.Severity
	Enabled       bool

	// Sustained applies only to latency_threshold: require 2 of the last 3
	// samples over the threshold instead of just the latest.
	Sustained bool

	// StatusCodes applies only to status_code_pattern.
	StatusCodes []int
}

func (c Config) Validate() error {
	const op string = "rule.config.validate"

	if !c.Type.Valid() {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: fmt.Sprintf("unknown rule type %q", c.Type)}
	}
	if !c.Severity.Valid() {
		return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: fmt.Sprintf("unknown severity %q", c.Severity)}
	}
	switch c.Type {
	case TypeConsecutiveFailures:
		if c.Threshold < 1 {
			return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "consecutive_failures threshold must be >= 1"}
		}
	case TypeLatencyThreshold:
		if c.Threshold <= 0 {
			return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "latency_threshold must be positive milliseconds"}
		}
	case TypeErrorRate, TypeUptimePercentage:
		if c.Threshold < 0 || c.Threshold > 100 {
			return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "percentage threshold must be within [0, 100]"}
		}
		if c.WindowMinutes < 1 {
			return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "window_minutes must be >= 1"}
		}
	case TypeStatusCodePattern:
		if len(c.StatusCodes) == 0 {
			return &apperror.Error{Kind: apperror.InvalidInput, Op: op, Message: "status_code_pattern needs at least one status code"}
		}
	}
	return nil
}

// HistoryStore is the slice of check storage the rules need.
type HistoryStore interface {
	Recent(ctx context.Context, monitorID int64, limit int32) ([]check.Result, error)
	Since(ctx context.Context, monitorID int64, since time.Time) ([]check.Result, error)
}

// Rule pairs a config with its evaluation logic. Evaluate returns a non-nil
// draft when the rule fires for the given latest result.
type Rule struct {
	cfg Config
}

func New(cfg Config) (Rule, error) {
	if err := cfg.Validate(); err != nil {
		return Rule{}, err
	}
	return Rule{cfg: cfg}, nil
}

func (r Rule) Type() Type               { return r.cfg.Type }
func (r Rule) Severity() alert.Severity { return r.cfg.Severity }
func (r Rule) Enabled() bool            { return r.cfg.Enabled }

func (r Rule) Evaluate(ctx context.Context, hist HistoryStore, monitorName string, latest check.Result) (*alert.Draft, error) {
	switch r.cfg.Type {
	case TypeConsecutiveFailures:
		return r.evalConsecutiveFailures(ctx, hist, monitorName, latest)
	case TypeLatencyThreshold:
		return r.evalLatencyThreshold(ctx, hist, monitorName, latest)
	case TypeErrorRate:
		return r.evalErrorRate(ctx, hist, monitorName, latest)
	case TypeUptimePercentage:
		return r.evalUptimePercentage(ctx, hist, monitorName, latest)
	case TypeStatusCodePattern:
		return r.evalStatusCodePattern(monitorName, latest)
	}
	return nil, &apperror.Error{
		Kind:    apperror.Internal,
		Op:      "rule.evaluate",
		Message: fmt.Sprintf("unknown rule type %q", r.cfg.Type),
	}
}

func (r Rule) evalConsecutiveFailures(ctx context.Context, hist HistoryStore, monitorName string, latest check.Result) (*alert.Draft, error) {
	if latest.Success {
		return nil, nil
	}

	n := int32(r.cfg.Threshold)
	results, err := hist.Recent(ctx, latest.MonitorID, n)
	if err != nil {
		return nil, err
	}
	if int32(len(results)) < n {
		return nil, nil
	}
	for _, res := range results {
		if res.Success {
			return nil, nil
		}
	}

	errs := make([]string, 0, 3)
	for _, res := range results {
		if res.ErrorMessage == "" {
			continue
		}
		errs = append(errs, res.ErrorMessage)
		if len(errs) == 3 {
			break
		}
	}
	msg := fmt.Sprintf("%s failed %d consecutive checks", monitorName, n)
	if len(errs) > 0 {
		msg += ". Recent errors: " + strings.Join(errs, "; ")
	}

	return &alert.Draft{
		MonitorID:   latest.MonitorID,
		Severity:    r.cfg.Severity,
		Title:       fmt.Sprintf("%s is down", monitorName),
		Message:     msg,
		TriggeredAt: latest.CheckedAt,
	}, nil
}

func (r Rule) evalLatencyThreshold(ctx context.Context, hist HistoryStore, monitorName string, latest check.Result) (*alert.Draft, error) {
	if latest.LatencyMS == nil {
		return nil, nil
	}
	if *latest.LatencyMS <= r.cfg.Threshold {
		return nil, nil
	}

	if r.cfg.Sustained {
		results, err := hist.Recent(ctx, latest.MonitorID, 3)
		if err != nil {
			return nil, err
		}
		over := 0
		for _, res := range results {
			if res.LatencyMS != nil && *res.LatencyMS > r.cfg.Threshold {
				over++
			}
		}
		if over < 2 {
			return nil, nil
		}
	}

	return &alert.Draft{
		MonitorID: latest.MonitorID,
		Severity:  r.cfg.Severity,
		Title:     fmt.Sprintf("%s is slow", monitorName),
		Message: fmt.Sprintf("%s responded in %.0fms, above the %.0fms threshold",
			monitorName, *latest.LatencyMS, r.cfg.Threshold),
		TriggeredAt: latest.CheckedAt,
	}, nil
}

func (r Rule) evalErrorRate(ctx context.Context, hist HistoryStore, monitorName string, latest check.Result) (*alert.Draft, error) {
	since := latest.CheckedAt.Add(-time.Duration(r.cfg.WindowMinutes) * time.Minute)
	results, err := hist.Since(ctx, latest.MonitorID, since)
	if err != nil {
		return nil, err
	}
	// below 5 samples the rate is too noisy to act on
	if len(results) < 5 {
		return nil, nil
	}

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	rate := float64(failed) / float64(len(results)) * 100
	if rate < r.cfg.Threshold {
		return nil, nil
	}

	return &alert.Draft{
		MonitorID: latest.MonitorID,
		Severity:  r.cfg.Severity,
		Title:     fmt.Sprintf("%s error rate is high", monitorName),
		Message: fmt.Sprintf("%s failed %d of %d checks (%.1f%%) in the last %d minutes",
			monitorName, failed, len(results), rate, r.cfg.WindowMinutes),
		TriggeredAt: latest.CheckedAt,
	}, nil
}

func (r Rule) evalUptimePercentage(ctx context.Context, hist HistoryStore, monitorName string, latest check.Result) (*alert.Draft, error) {
	since := latest.CheckedAt.Add(-time.Duration(r.cfg.WindowMinutes) * time.Minute)
	results, err := hist.Since(ctx, latest.MonitorID, since)
	if err != nil {
		return nil, err
	}
	if len(results) < 10 {
		return nil, nil
	}

	up := 0
	for _, res := range results {
		if res.Success {
			up++
		}
	}
	uptime := float64(up) / float64(len(results)) * 100
	if uptime >= r.cfg.Threshold {
		return nil, nil
	}

	return &alert.Draft{
		MonitorID: latest.MonitorID,
		Severity:  r.cfg.Severity,
		Title:     fmt.Sprintf("%s uptime dropped", monitorName),
		Message: fmt.Sprintf("%s uptime is %.1f%% over the last %d minutes, below the %.1f%% target",
			monitorName, uptime, r.cfg.WindowMinutes, r.cfg.Threshold),
		TriggeredAt: latest.CheckedAt,
	}, nil
}

func (r Rule) evalStatusCodePattern(monitorName string, latest check.Result) (*alert.Draft, error) {
	if latest.StatusCode == nil {
		return nil, nil
	}
	matched := false
	for _, code := range r.cfg.StatusCodes {
		if *latest.StatusCode == code {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}

	return &alert.Draft{
		MonitorID: latest.MonitorID,
		Severity:  r.cfg.Severity,
		Title:     fmt.Sprintf("%s returned status %d", monitorName, *latest.StatusCode),
		Message: fmt.Sprintf("%s responded with HTTP %d, which is on the alert list",
			monitorName, *latest.StatusCode),
		TriggeredAt: latest.CheckedAt,
	}, nil
}

// Defaults is the rule set attached to monitors that have no explicit rules.
func Defaults() []Rule {
	mk := func(cfg Config) Rule {
		r, err := New(cfg)
		if err != nil {
			panic(err)
		}
		return r
	}
	return []Rule{
		mk(Config{Type: TypeConsecutiveFailures, Threshold: 3, Severity: alert.SeverityError, Enabled: true}),
		mk(Config{Type: TypeLatencyThreshold, Threshold: 2000, Severity: alert.SeverityWarning, Enabled: true, Sustained: true}),
		mk(Config{Type: TypeErrorRate, Threshold: 50, WindowMinutes: 10, Severity: alert.SeverityError, Enabled: true}),
		mk(Config{Type: TypeUptimePercentage, Threshold: 95, WindowMinutes: 60, Severity: alert.SeverityWarning, Enabled: true}),
	}
}
