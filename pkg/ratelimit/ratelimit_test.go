package ratelimit

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps++
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestLimiter(perMinute int) (*Limiter, *fakeClock) {
	clock := newFakeClock()
	l := New(perMinute)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestAcquireWithinBudgetNeverSleeps(t *testing.T) {
	l, clock := newTestLimiter(5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx, "https://example.com/health"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		clock.now = clock.now.Add(time.Second)
	}

	if clock.sleeps != 0 {
		t.Fatalf("expected no sleeps under the limit, got %d", clock.sleeps)
	}
}

func TestAcquireOverBudgetSleepsUntilOldestExpires(t *testing.T) {
	l, clock := newTestLimiter(3)
	ctx := context.Background()
	start := clock.now

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx, "https://example.com"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		clock.now = clock.now.Add(10 * time.Second)
	}

	// Fourth call at start+30s must wait until start+60s.
	if err := l.Acquire(ctx, "https://example.com"); err != nil {
		t.Fatalf("fourth acquire: %v", err)
	}

	if clock.sleeps != 1 {
		t.Fatalf("expected exactly one sleep, got %d", clock.sleeps)
	}
	want := start.Add(time.Minute).Sub(start.Add(30 * time.Second))
	if clock.slept[0] != want {
		t.Fatalf("slept %v, want %v", clock.slept[0], want)
	}
}

func TestAcquireSeparateDomainsDoNotShareBudget(t *testing.T) {
	l, clock := newTestLimiter(1)
	ctx := context.Background()

	if err := l.Acquire(ctx, "https://a.example.com"); err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	if err := l.Acquire(ctx, "https://b.example.com"); err != nil {
		t.Fatalf("acquire b: %v", err)
	}

	if clock.sleeps != 0 {
		t.Fatalf("different domains should not contend, got %d sleeps", clock.sleeps)
	}
}

func TestAcquireCancelledWhileWaiting(t *testing.T) {
	l, _ := newTestLimiter(1)
	l.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	ctx := context.Background()
	if err := l.Acquire(ctx, "https://example.com"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx, "https://example.com"); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"https://example.com/health", "example.com"},
		{"https://example.com:8443/x", "example.com:8443"},
		{"not a url", "not a url"},
	}

	for _, tt := range tests {
		if got := domainOf(tt.target); got != tt.want {
			t.Errorf("domainOf(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}
