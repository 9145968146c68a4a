package alert

import (
	"context"
	"errors"
	"pulsewatch/internals/alerting"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeDeliveryStore struct {
	mu           sync.Mutex
	pending      []PendingAlert
	acknowledged []int64
}

func (f *fakeDeliveryStore) PendingWithMonitor(_ context.Context, _ int32) ([]PendingAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PendingAlert, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

func (f *fakeDeliveryStore) SetAcknowledged(_ context.Context, id int64) error {
	f.mu.Lock()
	f.acknowledged = append(f.acknowledged, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeDeliveryStore) ResolveOlderThan(_ context.Context, _, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeChannel struct {
	name string
	err  error

	mu    sync.Mutex
	sends []alerting.Payload
}

func (f *fakeChannel) Name() string          { return f.name }
func (f *fakeChannel) ValidateConfig() error { return nil }

func (f *fakeChannel) Send(_ context.Context, p alerting.Payload) error {
	f.mu.Lock()
	f.sends = append(f.sends, p)
	f.mu.Unlock()
	return f.err
}

func (f *fakeChannel) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

var workerBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func pendingAlert(id int64) PendingAlert {
	return PendingAlert{
		Alert: Alert{
			ID:          id,
			MonitorID:   1,
			Severity:    SeverityError,
			Title:       "api is down",
			Message:     "api failed 3 consecutive checks",
			TriggeredAt: workerBase,
		},
		MonitorName: "api",
		MonitorURL:  "https://api.example.com",
	}
}

func newTestWorker(store DeliveryStore, channels []alerting.Channel) *Worker {
	logger := zerolog.Nop()
	w := NewWorker(store, channels, WorkerConfig{
		BatchSize:     100,
		CheckInterval: 5 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Minute,
		AttemptTTL:    time.Hour,
	}, &logger)
	w.now = func() time.Time { return workerBase }
	return w
}

func TestDeliverAnyChannelSuccessAcknowledges(t *testing.T) {
	store := &fakeDeliveryStore{pending: []PendingAlert{pendingAlert(1)}}
	failing := &fakeChannel{name: "webhook", err: errors.New("boom")}
	working := &fakeChannel{name: "slack"}
	w := newTestWorker(store, []alerting.Channel{failing, working})

	w.runOnce(context.Background())

	if failing.sendCount() != 1 || working.sendCount() != 1 {
		t.Fatalf("sends = %d/%d, want 1/1", failing.sendCount(), working.sendCount())
	}
	if len(store.acknowledged) != 1 || store.acknowledged[0] != 1 {
		t.Fatalf("acknowledged = %v, want [1]", store.acknowledged)
	}

	// a successful delivery clears the attempt record
	w.mu.Lock()
	_, tracked := w.attempts[1]
	w.mu.Unlock()
	if tracked {
		t.Fatal("attempt record should be cleared after delivery")
	}
}

func TestDeliverAllChannelsFailKeepsAttempts(t *testing.T) {
	store := &fakeDeliveryStore{pending: []PendingAlert{pendingAlert(1)}}
	failing := &fakeChannel{name: "webhook", err: errors.New("boom")}
	w := newTestWorker(store, []alerting.Channel{failing})

	w.runOnce(context.Background())

	if len(store.acknowledged) != 0 {
		t.Fatalf("acknowledged = %v, want none", store.acknowledged)
	}
	w.mu.Lock()
	a := w.attempts[1]
	w.mu.Unlock()
	if a.count != 1 {
		t.Fatalf("attempt count = %d, want 1", a.count)
	}
}

func TestRetryWaitsForDelay(t *testing.T) {
	store := &fakeDeliveryStore{pending: []PendingAlert{pendingAlert(1)}}
	failing := &fakeChannel{name: "webhook", err: errors.New("boom")}
	w := newTestWorker(store, []alerting.Channel{failing})

	now := workerBase
	w.now = func() time.Time { return now }

	w.runOnce(context.Background())
	if failing.sendCount() != 1 {
		t.Fatalf("sends = %d, want 1", failing.sendCount())
	}

	// the retry delay has not elapsed
	w.runOnce(context.Background())
	if failing.sendCount() != 1 {
		t.Fatalf("sends = %d, retry fired before the delay", failing.sendCount())
	}

	now = now.Add(61 * time.Second)
	w.runOnce(context.Background())
	if failing.sendCount() != 2 {
		t.Fatalf("sends = %d, want 2 after the delay", failing.sendCount())
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	store := &fakeDeliveryStore{pending: []PendingAlert{pendingAlert(1)}}
	failing := &fakeChannel{name: "webhook", err: errors.New("boom")}
	w := newTestWorker(store, []alerting.Channel{failing})

	now := workerBase
	w.now = func() time.Time { return now }

	for i := 0; i < 6; i++ {
		w.runOnce(context.Background())
		now = now.Add(2 * time.Minute)
	}

	if got := failing.sendCount(); got != 3 {
		t.Fatalf("sends = %d, want exactly maxRetries (3)", got)
	}
}

func TestCleanupAttemptsAllowsFreshStart(t *testing.T) {
	store := &fakeDeliveryStore{pending: []PendingAlert{pendingAlert(1)}}
	failing := &fakeChannel{name: "webhook", err: errors.New("boom")}
	w := newTestWorker(store, []alerting.Channel{failing})

	now := workerBase
	w.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		w.runOnce(context.Background())
		now = now.Add(2 * time.Minute)
	}
	if failing.sendCount() != 3 {
		t.Fatalf("sends = %d, want 3", failing.sendCount())
	}

	// after the attempt TTL the record is dropped and delivery restarts
	now = now.Add(2 * time.Hour)
	w.runOnce(context.Background())
	if failing.sendCount() != 4 {
		t.Fatalf("sends = %d, want 4 after attempt TTL", failing.sendCount())
	}
}

func TestDeliverPayloadShape(t *testing.T) {
	store := &fakeDeliveryStore{pending: []PendingAlert{pendingAlert(9)}}
	ch := &fakeChannel{name: "webhook"}
	w := newTestWorker(store, []alerting.Channel{ch})

	w.runOnce(context.Background())

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(ch.sends))
	}
	p := ch.sends[0]
	if p.AlertID != 9 || p.MonitorName != "api" || p.Severity != "error" {
		t.Errorf("payload = %+v", p)
	}
	if p.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("timestamp = %q", p.Timestamp)
	}
}
