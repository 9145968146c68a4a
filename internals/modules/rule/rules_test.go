package rule

import (
	"context"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/check"
	"strings"
	"testing"
	"time"
)

type fakeHistory struct {
	results []check.Result
}

func (f *fakeHistory) Recent(_ context.Context, _ int64, limit int32) ([]check.Result, error) {
	if int32(len(f.results)) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func (f *fakeHistory) Since(_ context.Context, _ int64, since time.Time) ([]check.Result, error) {
	out := make([]check.Result, 0)
	for _, r := range f.results {
		if !r.CheckedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func failedResult(at time.Time, msg string) check.Result {
	return check.Result{MonitorID: 1, Success: false, ErrorMessage: msg, CheckedAt: at}
}

func successResult(at time.Time, latencyMS float64) check.Result {
	code := 200
	return check.Result{MonitorID: 1, StatusCode: &code, LatencyMS: &latencyMS, Success: true, CheckedAt: at}
}

func mustRule(t *testing.T, cfg Config) Rule {
	t.Helper()
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v): %v", cfg, err)
	}
	return r
}

func TestConsecutiveFailuresLatestSuccessNeverFires(t *testing.T) {
	r := mustRule(t, Config{Type: TypeConsecutiveFailures, Threshold: 3, Severity: alert.SeverityError, Enabled: true})
	hist := &fakeHistory{results: []check.Result{
		failedResult(testBase, "boom"),
		failedResult(testBase.Add(-time.Minute), "boom"),
	}}

	draft, err := r.Evaluate(context.Background(), hist, "api", successResult(testBase, 100))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("expected no draft for a successful latest result, got %+v", draft)
	}
}

func TestConsecutiveFailuresNeedsEnoughHistory(t *testing.T) {
	r := mustRule(t, Config{Type: TypeConsecutiveFailures, Threshold: 3, Severity: alert.SeverityError, Enabled: true})
	hist := &fakeHistory{results: []check.Result{
		failedResult(testBase, "boom"),
		failedResult(testBase.Add(-time.Minute), "boom"),
	}}

	draft, err := r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("expected no draft with only 2 stored results, got %+v", draft)
	}
}

func TestConsecutiveFailuresFiresWithErrorSummary(t *testing.T) {
	r := mustRule(t, Config{Type: TypeConsecutiveFailures, Threshold: 3, Severity: alert.SeverityError, Enabled: true})
	hist := &fakeHistory{results: []check.Result{
		failedResult(testBase, "timeout"),
		failedResult(testBase.Add(-time.Minute), "connection refused"),
		failedResult(testBase.Add(-2*time.Minute), "timeout"),
		failedResult(testBase.Add(-3*time.Minute), "dns failure"),
	}}

	draft, err := r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "timeout"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft == nil {
		t.Fatal("expected a draft")
	}
	if draft.Severity != alert.SeverityError {
		t.Errorf("severity = %q, want %q", draft.Severity, alert.SeverityError)
	}
	if draft.Title != "api is down" {
		t.Errorf("title = %q", draft.Title)
	}
	if !strings.Contains(draft.Message, "timeout") || !strings.Contains(draft.Message, "connection refused") {
		t.Errorf("message missing recent errors: %q", draft.Message)
	}
	if strings.Contains(draft.Message, "dns failure") {
		t.Errorf("message should carry at most 3 errors from the window: %q", draft.Message)
	}
}

func TestConsecutiveFailuresRecoveryInWindow(t *testing.T) {
	r := mustRule(t, Config{Type: TypeConsecutiveFailures, Threshold: 3, Severity: alert.SeverityError, Enabled: true})
	hist := &fakeHistory{results: []check.Result{
		failedResult(testBase, "boom"),
		successResult(testBase.Add(-time.Minute), 90),
		failedResult(testBase.Add(-2*time.Minute), "boom"),
	}}

	draft, err := r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("a success inside the window must block the rule, got %+v", draft)
	}
}

func TestLatencyThresholdStrictComparison(t *testing.T) {
	r := mustRule(t, Config{Type: TypeLatencyThreshold, Threshold: 2000, Severity: alert.SeverityWarning, Enabled: true})
	hist := &fakeHistory{}

	draft, err := r.Evaluate(context.Background(), hist, "api", successResult(testBase, 2000))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("latency equal to the threshold must not fire, got %+v", draft)
	}

	draft, err = r.Evaluate(context.Background(), hist, "api", successResult(testBase, 2001))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft == nil {
		t.Fatal("latency above the threshold should fire")
	}
	if draft.Title != "api is slow" {
		t.Errorf("title = %q", draft.Title)
	}
}

func TestLatencyThresholdSustainedNeedsTwoOfThree(t *testing.T) {
	r := mustRule(t, Config{Type: TypeLatencyThreshold, Threshold: 1000, Severity: alert.SeverityWarning, Enabled: true, Sustained: true})

	hist := &fakeHistory{results: []check.Result{
		successResult(testBase, 1500),
		successResult(testBase.Add(-time.Minute), 200),
		successResult(testBase.Add(-2*time.Minute), 300),
	}}
	draft, err := r.Evaluate(context.Background(), hist, "api", successResult(testBase, 1500))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("one slow sample of three must not fire in sustained mode, got %+v", draft)
	}

	hist.results[1] = successResult(testBase.Add(-time.Minute), 1800)
	draft, err = r.Evaluate(context.Background(), hist, "api", successResult(testBase, 1500))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft == nil {
		t.Fatal("two slow samples of three should fire in sustained mode")
	}
}

func TestLatencyThresholdFiresOnSlowFailedChecks(t *testing.T) {
	r := mustRule(t, Config{Type: TypeLatencyThreshold, Threshold: 500, Severity: alert.SeverityWarning, Enabled: true})

	// a 503 that still took 600ms is a latency signal like any other
	code := 503
	latency := 600.0
	slow := check.Result{MonitorID: 1, StatusCode: &code, LatencyMS: &latency, Success: false, CheckedAt: testBase}

	draft, err := r.Evaluate(context.Background(), &fakeHistory{}, "api", slow)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft == nil {
		t.Fatal("latency above the threshold should fire regardless of check outcome")
	}
	if draft.Title != "api is slow" {
		t.Errorf("title = %q", draft.Title)
	}
}

func TestLatencyThresholdSkipsResultsWithoutLatency(t *testing.T) {
	r := mustRule(t, Config{Type: TypeLatencyThreshold, Threshold: 100, Severity: alert.SeverityWarning, Enabled: true})

	// connection failures never get a latency sample
	draft, err := r.Evaluate(context.Background(), &fakeHistory{}, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("results without a latency sample must not fire, got %+v", draft)
	}
}

func TestErrorRateNeedsFiveSamples(t *testing.T) {
	r := mustRule(t, Config{Type: TypeErrorRate, Threshold: 50, WindowMinutes: 10, Severity: alert.SeverityError, Enabled: true})
	hist := &fakeHistory{results: []check.Result{
		failedResult(testBase, "boom"),
		failedResult(testBase.Add(-time.Minute), "boom"),
		failedResult(testBase.Add(-2*time.Minute), "boom"),
		failedResult(testBase.Add(-3*time.Minute), "boom"),
	}}

	draft, err := r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("4 samples are below the minimum, got %+v", draft)
	}
}

func TestErrorRateFiresAtThreshold(t *testing.T) {
	r := mustRule(t, Config{Type: TypeErrorRate, Threshold: 50, WindowMinutes: 10, Severity: alert.SeverityError, Enabled: true})
	// 3 failed of 6 = 50%, threshold is inclusive
	hist := &fakeHistory{results: []check.Result{
		failedResult(testBase, "boom"),
		successResult(testBase.Add(-time.Minute), 50),
		failedResult(testBase.Add(-2*time.Minute), "boom"),
		successResult(testBase.Add(-3*time.Minute), 60),
		failedResult(testBase.Add(-4*time.Minute), "boom"),
		successResult(testBase.Add(-5*time.Minute), 70),
	}}

	draft, err := r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft == nil {
		t.Fatal("50% failure rate should meet a 50% threshold")
	}
	if !strings.Contains(draft.Message, "3 of 6") {
		t.Errorf("message = %q", draft.Message)
	}
}

func TestErrorRateIgnoresResultsOutsideWindow(t *testing.T) {
	r := mustRule(t, Config{Type: TypeErrorRate, Threshold: 50, WindowMinutes: 10, Severity: alert.SeverityError, Enabled: true})
	hist := &fakeHistory{results: []check.Result{
		failedResult(testBase, "boom"),
		failedResult(testBase.Add(-time.Minute), "boom"),
		// outside the 10 minute window
		failedResult(testBase.Add(-20*time.Minute), "boom"),
		failedResult(testBase.Add(-21*time.Minute), "boom"),
		failedResult(testBase.Add(-22*time.Minute), "boom"),
	}}

	draft, err := r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("only 2 samples fall inside the window, got %+v", draft)
	}
}

func TestUptimePercentageNeedsTenSamples(t *testing.T) {
	r := mustRule(t, Config{Type: TypeUptimePercentage, Threshold: 95, WindowMinutes: 60, Severity: alert.SeverityWarning, Enabled: true})
	results := make([]check.Result, 0, 9)
	for i := 0; i < 9; i++ {
		results = append(results, failedResult(testBase.Add(-time.Duration(i)*time.Minute), "boom"))
	}
	hist := &fakeHistory{results: results}

	draft, err := r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("9 samples are below the minimum, got %+v", draft)
	}
}

func TestUptimePercentageStrictBoundary(t *testing.T) {
	r := mustRule(t, Config{Type: TypeUptimePercentage, Threshold: 90, WindowMinutes: 60, Severity: alert.SeverityWarning, Enabled: true})

	// exactly 90% uptime: 9 up, 1 down
	results := make([]check.Result, 0, 10)
	for i := 0; i < 9; i++ {
		results = append(results, successResult(testBase.Add(-time.Duration(i)*time.Minute), 50))
	}
	results = append(results, failedResult(testBase.Add(-9*time.Minute), "boom"))
	hist := &fakeHistory{results: results}

	draft, err := r.Evaluate(context.Background(), hist, "api", successResult(testBase, 50))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("uptime equal to the threshold must not fire, got %+v", draft)
	}

	// 8 up, 2 down = 80%
	hist.results[0] = failedResult(testBase, "boom")
	draft, err = r.Evaluate(context.Background(), hist, "api", failedResult(testBase, "boom"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft == nil {
		t.Fatal("80% uptime under a 90% target should fire")
	}
}

func TestStatusCodePatternMembership(t *testing.T) {
	r := mustRule(t, Config{Type: TypeStatusCodePattern, StatusCodes: []int{500, 502, 503}, Severity: alert.SeverityCritical, Enabled: true})

	code := 503
	latest := check.Result{MonitorID: 1, StatusCode: &code, Success: false, CheckedAt: testBase}
	draft, err := r.Evaluate(context.Background(), &fakeHistory{}, "api", latest)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft == nil {
		t.Fatal("503 is on the alert list and should fire")
	}
	if draft.Title != "api returned status 503" {
		t.Errorf("title = %q", draft.Title)
	}

	other := 404
	latest.StatusCode = &other
	draft, err = r.Evaluate(context.Background(), &fakeHistory{}, "api", latest)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("404 is not on the alert list, got %+v", draft)
	}

	latest.StatusCode = nil
	draft, err = r.Evaluate(context.Background(), &fakeHistory{}, "api", latest)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if draft != nil {
		t.Fatalf("network failures have no status code to match, got %+v", draft)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"unknown type", Config{Type: "nope", Severity: alert.SeverityInfo}, true},
		{"bad severity", Config{Type: TypeErrorRate, Threshold: 50, WindowMinutes: 5, Severity: "loud"}, true},
		{"zero consecutive threshold", Config{Type: TypeConsecutiveFailures, Threshold: 0, Severity: alert.SeverityError}, true},
		{"negative latency", Config{Type: TypeLatencyThreshold, Threshold: -1, Severity: alert.SeverityWarning}, true},
		{"percentage over 100", Config{Type: TypeErrorRate, Threshold: 120, WindowMinutes: 5, Severity: alert.SeverityError}, true},
		{"missing window", Config{Type: TypeUptimePercentage, Threshold: 95, Severity: alert.SeverityWarning}, true},
		{"empty status codes", Config{Type: TypeStatusCodePattern, Severity: alert.SeverityCritical}, true},
		{"valid", Config{Type: TypeErrorRate, Threshold: 50, WindowMinutes: 10, Severity: alert.SeverityError}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultsAreValid(t *testing.T) {
	defaults := Defaults()
	if len(defaults) != 4 {
		t.Fatalf("len(Defaults()) = %d, want 4", len(defaults))
	}
	for _, r := range defaults {
		if !r.Enabled() {
			t.Errorf("default rule %s must be enabled", r.Type())
		}
	}
}
