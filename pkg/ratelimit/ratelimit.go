package ratelimit

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Limiter throttles outbound probes per target domain using a sliding
// 60-second window of request timestamps.
type Limiter struct {
	perMinute int
	window    time.Duration
	requests  map[string][]time.Time

	// serializes prune-check-sleep-record; two callers must never both
	// see the same free slot
	sem chan struct{}

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func New(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Limiter{
		perMinute: perMinute,
		window:    time.Minute,
		requests:  make(map[string][]time.Time),
		sem:       make(chan struct{}, 1),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Acquire blocks until a request slot is free for the target's domain, then
// records the use. It only fails when ctx is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context, target string) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.sem }()

	domain := domainOf(target)

	now := l.now()
	cutoff := now.Add(-l.window)

	// Drop entries that left the window
	kept := l.requests[domain][:0]
	for _, ts := range l.requests[domain] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.requests[domain] = kept

	if len(kept) >= l.perMinute {
		oldest := kept[0]
		wait := oldest.Add(l.window).Sub(now)
		if wait > 0 {
			log.Info().
				Str("domain", domain).
				Dur("wait", wait).
				Msg("rate limit wait")

			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	l.requests[domain] = append(l.requests[domain], l.now())
	return nil
}

func domainOf(target string) string {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return target
	}
	return parsed.Host
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
