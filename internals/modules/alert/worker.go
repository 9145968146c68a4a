package alert

import (
	"context"
	"pulsewatch/internals/alerting"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DeliveryStore is the slice of alert storage the worker needs.
type DeliveryStore interface {
	PendingWithMonitor(ctx context.Context, limit int32) ([]PendingAlert, error)
	SetAcknowledged(ctx context.Context, id int64) error
	ResolveOlderThan(ctx context.Context, cutoff, at time.Time) (int64, error)
}

type attempt struct {
	count int
	last  time.Time
}

// Worker drains pending alerts and pushes them through every configured
// channel. Delivery attempts are tracked in memory; an alert that exhausts
// its retries stays pending in storage but is no longer sent.
type Worker struct {
	store    DeliveryStore
	channels []alerting.Channel

	batchSize        int32
	checkInterval    time.Duration
	maxRetries       int
	retryDelay       time.Duration
	attemptTTL       time.Duration
	autoResolveAfter time.Duration

	mu       sync.Mutex
	attempts map[int64]attempt

	logger *zerolog.Logger
	now    func() time.Time
}

type WorkerConfig struct {
	BatchSize        int32
	CheckInterval    time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	AttemptTTL       time.Duration
	AutoResolveAfter time.Duration
}

func NewWorker(store DeliveryStore, channels []alerting.Channel, cfg WorkerConfig, logger *zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Minute
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = time.Hour
	}
	return &Worker{
		store:            store,
		channels:         channels,
		batchSize:        cfg.BatchSize,
		checkInterval:    cfg.CheckInterval,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       cfg.RetryDelay,
		attemptTTL:       cfg.AttemptTTL,
		autoResolveAfter: cfg.AutoResolveAfter,
		attempts:         make(map[int64]attempt),
		logger:           logger,
		now:              time.Now,
	}
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().
		Dur("interval", w.checkInterval).
		Int("channels", len(w.channels)).
		Msg("alert worker started")

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("alert worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	w.cleanupAttempts()

	if w.autoResolveAfter > 0 {
		now := w.now()
		if n, err := w.store.ResolveOlderThan(ctx, now.Add(-w.autoResolveAfter), now); err != nil {
			w.logger.Error().Err(err).Msg("auto resolve sweep failed")
		} else if n > 0 {
			w.logger.Info().Int64("resolved", n).Msg("stale alerts auto resolved")
		}
	}

	pending, err := w.store.PendingWithMonitor(ctx, w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to fetch pending alerts")
		return
	}
	if len(pending) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, p := range pending {
		if !w.shouldRetry(p.ID) {
			continue
		}
		wg.Add(1)
		go func(p PendingAlert) {
			defer wg.Done()
			w.deliver(ctx, p)
		}(p)
	}
	wg.Wait()
}

func (w *Worker) shouldRetry(alertID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.attempts[alertID]
	if !ok {
		return true
	}
	if a.count >= w.maxRetries {
		return false
	}
	return w.now().Sub(a.last) >= w.retryDelay
}

func (w *Worker) recordAttempt(alertID int64) {
	w.mu.Lock()
	a := w.attempts[alertID]
	a.count++
	a.last = w.now()
	w.attempts[alertID] = a
	w.mu.Unlock()
}

func (w *Worker) clearAttempts(alertID int64) {
	w.mu.Lock()
	delete(w.attempts, alertID)
	w.mu.Unlock()
}

// cleanupAttempts drops attempt records that have gone stale, so an alert id
// reused after a long gap starts with a clean slate.
func (w *Worker) cleanupAttempts() {
	cutoff := w.now().Add(-w.attemptTTL)
	w.mu.Lock()
	for id, a := range w.attempts {
		if a.last.Before(cutoff) {
			delete(w.attempts, id)
		}
	}
	w.mu.Unlock()
}

// deliver sends one alert through every channel. The attempt is recorded
// before sending so a crash mid-delivery cannot turn into a rapid retry loop.
func (w *Worker) deliver(ctx context.Context, p PendingAlert) {
	w.recordAttempt(p.ID)

	payload := alerting.Payload{
		AlertID:     p.ID,
		MonitorName: p.MonitorName,
		MonitorURL:  p.MonitorURL,
		Severity:    string(p.Severity),
		Title:       p.Title,
		Message:     p.Message,
		Timestamp:   p.TriggeredAt.UTC().Format(time.RFC3339),
	}

	delivered := false
	failed := make([]string, 0)
	for _, ch := range w.channels {
		if err := ch.Send(ctx, payload); err != nil {
			failed = append(failed, ch.Name())
			w.logger.Error().Err(err).
				Int64("alert_id", p.ID).
				Str("channel", ch.Name()).
				Msg("alert delivery failed")
			continue
		}
		delivered = true
	}

	if !delivered {
		w.logger.Warn().
			Int64("alert_id", p.ID).
			Strs("failed_channels", failed).
			Msg("alert not delivered on any channel")
		return
	}

	if err := w.store.SetAcknowledged(ctx, p.ID); err != nil {
		w.logger.Error().Err(err).Int64("alert_id", p.ID).Msg("failed to acknowledge alert")
		return
	}
	w.clearAttempts(p.ID)
	w.logger.Info().
		Int64("alert_id", p.ID).
		Int("failed_channels", len(failed)).
		Msg("alert delivered")
}
