package check

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"pulsewatch/internals/modules/monitor"
	"time"

	"github.com/rs/zerolog"
)

// Limiter gates outbound probes per target domain.
type Limiter interface {
	Acquire(ctx context.Context, target string) error
}

// Checker probes monitor URLs. A semaphore caps concurrent probes across
// all monitors and the limiter is consulted before every attempt, retries
// included.
type Checker struct {
	client     *http.Client
	limiter    Limiter
	sem        chan struct{}
	maxRetries int
	userAgent  string
	logger     *zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewChecker(client *http.Client, limiter Limiter, maxConcurrent, maxRetries int, contactEmail string, logger *zerolog.Logger) *Checker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ua := "PulsewatchMonitor/1.0"
	if contactEmail != "" {
		ua = fmt.Sprintf("PulsewatchMonitor/1.0 (+%s)", contactEmail)
	}
	return &Checker{
		client:     client,
		limiter:    limiter,
		sem:        make(chan struct{}, maxConcurrent),
		maxRetries: maxRetries,
		userAgent:  ua,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Check probes the monitor once, retrying transient network errors up to
// maxRetries extra attempts. It always returns a Result; probe failures are
// data, not errors. The error return covers only context cancellation.
func (c *Checker) Check(ctx context.Context, m monitor.Monitor) (Result, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration((math.Pow(2, float64(attempt-1)) + rand.Float64()) * float64(time.Second))
			if err := c.sleep(ctx, backoff); err != nil {
				return Result{}, err
			}
		}

		if err := c.limiter.Acquire(ctx, m.URL); err != nil {
			return Result{}, err
		}

		res, retryable, err := c.attempt(ctx, m)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if !retryable {
			return c.failure(m, err), nil
		}
		lastErr = err
		c.logger.Debug().Err(err).
			Int64("monitor_id", m.ID).
			Int("attempt", attempt+1).
			Msg("probe attempt failed")
	}
	return c.failure(m, lastErr), nil
}

// attempt runs a single HTTP probe. The error is retryable only for
// network-level failures; HTTP responses always settle the check.
func (c *Checker) attempt(ctx context.Context, m monitor.Monitor) (Result, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, m.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, m.URL, nil)
	if err != nil {
		return Result{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := c.now()
	resp, err := c.client.Do(req)
	latency := float64(c.now().Sub(start)) / float64(time.Millisecond)
	if err != nil {
		return Result{}, true, err
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	status := resp.StatusCode
	res := Result{
		MonitorID:  m.ID,
		StatusCode: &status,
		LatencyMS:  &latency,
		CheckedAt:  c.now(),
	}

	switch {
	case status >= 200 && status < 400:
		res.Success = true
	case status == http.StatusTooManyRequests:
		res.ErrorMessage = "rate limited by target"
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			res.ErrorMessage = fmt.Sprintf("rate limited by target, retry after %s", ra)
		}
	default:
		res.ErrorMessage = fmt.Sprintf("HTTP %d", status)
	}
	return res, false, nil
}

func (c *Checker) failure(m monitor.Monitor, err error) Result {
	msg := "check failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		MonitorID:    m.ID,
		Success:      false,
		ErrorMessage: msg,
		CheckedAt:    c.now(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
