package scheduler

import (
	"context"
	"errors"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/rule"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var schedBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeMonitorStore struct {
	monitors []monitor.Monitor
}

func (f *fakeMonitorStore) ListEnabled(_ context.Context) ([]monitor.Monitor, error) {
	return f.monitors, nil
}

func (f *fakeMonitorStore) GetByID(_ context.Context, id int64) (monitor.Monitor, error) {
	for _, m := range f.monitors {
		if m.ID == id {
			return m, nil
		}
	}
	return monitor.Monitor{}, errors.New("not found")
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []check.Result
}

func (f *fakeRecorder) RecordResult(_ context.Context, res check.Result) (check.Result, error) {
	f.mu.Lock()
	f.results = append(f.results, res)
	f.mu.Unlock()
	return res, nil
}

type fakeProber struct {
	mu      sync.Mutex
	checked []int64
	fail    map[int64]error
	down    map[int64]bool
}

func (f *fakeProber) Check(_ context.Context, m monitor.Monitor) (check.Result, error) {
	f.mu.Lock()
	f.checked = append(f.checked, m.ID)
	f.mu.Unlock()
	if err := f.fail[m.ID]; err != nil {
		return check.Result{}, err
	}
	if f.down[m.ID] {
		return check.Result{MonitorID: m.ID, Success: false, ErrorMessage: "boom", CheckedAt: schedBase}, nil
	}
	code := 200
	return check.Result{MonitorID: m.ID, StatusCode: &code, Success: true, CheckedAt: schedBase}, nil
}

type fakeStatusRecorder struct {
	mu      sync.Mutex
	set     map[int64]bool
	deleted []int64
}

func (f *fakeStatusRecorder) SetLastStatus(_ context.Context, monitorID int64, up bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set == nil {
		f.set = make(map[int64]bool)
	}
	f.set[monitorID] = up
	return nil
}

func (f *fakeStatusRecorder) DelLastStatus(_ context.Context, monitorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, monitorID)
	return nil
}

type fakeEvaluator struct {
	mu         sync.Mutex
	registered map[int64]int
	removed    []int64
	drafts     []alert.Draft
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{registered: make(map[int64]int)}
}

func (f *fakeEvaluator) RegisterRules(monitorID int64, _ []rule.Rule) {
	f.mu.Lock()
	f.registered[monitorID]++
	f.mu.Unlock()
}

func (f *fakeEvaluator) UnregisterRules(monitorID int64) {
	f.mu.Lock()
	f.removed = append(f.removed, monitorID)
	f.mu.Unlock()
}

func (f *fakeEvaluator) EvaluateAll(_ context.Context, _ string, _ check.Result) []alert.Draft {
	return f.drafts
}

type fakeAlertCreator struct {
	mu      sync.Mutex
	created []alert.Draft
	err     error
}

func (f *fakeAlertCreator) Create(_ context.Context, d alert.Draft) (alert.Alert, error) {
	f.mu.Lock()
	f.created = append(f.created, d)
	f.mu.Unlock()
	return alert.Alert{MonitorID: d.MonitorID}, f.err
}

func enabledMonitor(id int64, lastChecked *time.Time) monitor.Monitor {
	return monitor.Monitor{
		ID: id, Name: "api", URL: "https://api.example.com",
		Type: monitor.TypeHTTP, IntervalSec: 60, TimeoutSec: 5,
		Enabled: true, LastCheckedAt: lastChecked,
	}
}

func newTestScheduler(store MonitorStore, rec ResultRecorder, prober Prober, eval RuleEvaluator, alerts AlertCreator) *Scheduler {
	logger := zerolog.Nop()
	s := New(store, rec, prober, eval, alerts, 10*time.Second, &logger)
	s.now = func() time.Time { return schedBase }
	return s
}

func TestRunOnceChecksOnlyDueMonitors(t *testing.T) {
	recent := schedBase.Add(-10 * time.Second)
	overdue := schedBase.Add(-2 * time.Minute)
	store := &fakeMonitorStore{monitors: []monitor.Monitor{
		enabledMonitor(1, nil),      // never checked
		enabledMonitor(2, &recent),  // not due yet
		enabledMonitor(3, &overdue), // due
	}}
	rec := &fakeRecorder{}
	prober := &fakeProber{}
	eval := newFakeEvaluator()
	s := newTestScheduler(store, rec, prober, eval, &fakeAlertCreator{})

	s.runOnce(context.Background())

	prober.mu.Lock()
	checked := make(map[int64]bool)
	for _, id := range prober.checked {
		checked[id] = true
	}
	prober.mu.Unlock()

	if !checked[1] || !checked[3] || checked[2] {
		t.Fatalf("checked = %v, want monitors 1 and 3 only", prober.checked)
	}
	if len(rec.results) != 2 {
		t.Errorf("recorded %d results, want 2", len(rec.results))
	}
}

func TestRunOnceRegistersRulesOnce(t *testing.T) {
	store := &fakeMonitorStore{monitors: []monitor.Monitor{enabledMonitor(1, nil)}}
	eval := newFakeEvaluator()
	s := newTestScheduler(store, &fakeRecorder{}, &fakeProber{}, eval, &fakeAlertCreator{})

	s.runOnce(context.Background())
	s.runOnce(context.Background())
	s.runOnce(context.Background())

	if eval.registered[1] != 1 {
		t.Fatalf("monitor 1 registered %d times, want 1", eval.registered[1])
	}
}

func TestRunOnceOneFailureDoesNotAbortBatch(t *testing.T) {
	store := &fakeMonitorStore{monitors: []monitor.Monitor{
		enabledMonitor(1, nil),
		enabledMonitor(2, nil),
	}}
	prober := &fakeProber{fail: map[int64]error{1: errors.New("boom")}}
	rec := &fakeRecorder{}
	s := newTestScheduler(store, rec, prober, newFakeEvaluator(), &fakeAlertCreator{})

	s.runOnce(context.Background())

	if len(prober.checked) != 2 {
		t.Fatalf("checked %d monitors, want 2", len(prober.checked))
	}
	if len(rec.results) != 1 {
		t.Fatalf("recorded %d results, want 1 (the failed probe records nothing)", len(rec.results))
	}
}

func TestRunOnceCreatesAlertsFromDrafts(t *testing.T) {
	store := &fakeMonitorStore{monitors: []monitor.Monitor{enabledMonitor(1, nil)}}
	eval := newFakeEvaluator()
	eval.drafts = []alert.Draft{
		{MonitorID: 1, Severity: alert.SeverityError, Title: "api is down"},
		{MonitorID: 1, Severity: alert.SeverityWarning, Title: "api is slow"},
	}
	creator := &fakeAlertCreator{}
	s := newTestScheduler(store, &fakeRecorder{}, &fakeProber{}, eval, creator)

	s.runOnce(context.Background())

	if len(creator.created) != 2 {
		t.Fatalf("created %d alerts, want 2", len(creator.created))
	}
}

func TestRunOnceUpdatesStatusSnapshot(t *testing.T) {
	store := &fakeMonitorStore{monitors: []monitor.Monitor{
		enabledMonitor(1, nil),
		enabledMonitor(2, nil),
	}}
	prober := &fakeProber{down: map[int64]bool{2: true}}
	statuses := &fakeStatusRecorder{}
	s := newTestScheduler(store, &fakeRecorder{}, prober, newFakeEvaluator(), &fakeAlertCreator{})
	s.SetStatusRecorder(statuses)

	s.runOnce(context.Background())

	if up, ok := statuses.set[1]; !ok || !up {
		t.Errorf("monitor 1 snapshot = %v,%v, want up", up, ok)
	}
	if up, ok := statuses.set[2]; !ok || up {
		t.Errorf("monitor 2 snapshot = %v,%v, want down", up, ok)
	}

	s.RemoveMonitor(2)
	if len(statuses.deleted) != 1 || statuses.deleted[0] != 2 {
		t.Errorf("deleted = %v, want [2]", statuses.deleted)
	}
}

func TestReloadMonitorRulesDisabledMonitorIsRemoved(t *testing.T) {
	m := enabledMonitor(1, nil)
	m.Enabled = false
	store := &fakeMonitorStore{monitors: []monitor.Monitor{m}}
	eval := newFakeEvaluator()
	s := newTestScheduler(store, &fakeRecorder{}, &fakeProber{}, eval, &fakeAlertCreator{})

	if err := s.ReloadMonitorRules(context.Background(), 1); err != nil {
		t.Fatalf("ReloadMonitorRules: %v", err)
	}
	if len(eval.removed) != 1 || eval.removed[0] != 1 {
		t.Fatalf("removed = %v, want [1]", eval.removed)
	}
	if eval.registered[1] != 0 {
		t.Errorf("disabled monitor should not be registered")
	}
}

func TestRemoveMonitorAllowsReRegistration(t *testing.T) {
	store := &fakeMonitorStore{monitors: []monitor.Monitor{enabledMonitor(1, nil)}}
	eval := newFakeEvaluator()
	s := newTestScheduler(store, &fakeRecorder{}, &fakeProber{}, eval, &fakeAlertCreator{})

	s.runOnce(context.Background())
	s.RemoveMonitor(1)
	s.runOnce(context.Background())

	if eval.registered[1] != 2 {
		t.Fatalf("monitor 1 registered %d times, want 2 after removal", eval.registered[1])
	}
}

func TestMonitorIsDue(t *testing.T) {
	recent := schedBase.Add(-30 * time.Second)
	exact := schedBase.Add(-60 * time.Second)

	cases := []struct {
		name string
		m    monitor.Monitor
		want bool
	}{
		{"never checked", enabledMonitor(1, nil), true},
		{"not elapsed", enabledMonitor(1, &recent), false},
		{"exactly elapsed", enabledMonitor(1, &exact), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.IsDue(schedBase); got != tc.want {
				t.Errorf("IsDue = %v, want %v", got, tc.want)
			}
		})
	}

	disabled := enabledMonitor(1, nil)
	disabled.Enabled = false
	if disabled.IsDue(schedBase) {
		t.Error("disabled monitor must never be due")
	}
}
