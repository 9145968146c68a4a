package scheduler

import (
	"context"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/rule"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type MonitorStore interface {
	ListEnabled(ctx context.Context) ([]monitor.Monitor, error)
	GetByID(ctx context.Context, id int64) (monitor.Monitor, error)
}

type ResultRecorder interface {
	RecordResult(ctx context.Context, res check.Result) (check.Result, error)
}

type Prober interface {
	Check(ctx context.Context, m monitor.Monitor) (check.Result, error)
}

type RuleEvaluator interface {
	RegisterRules(monitorID int64, rules []rule.Rule)
	UnregisterRules(monitorID int64)
	EvaluateAll(ctx context.Context, monitorName string, latest check.Result) []alert.Draft
}

type AlertCreator interface {
	Create(ctx context.Context, d alert.Draft) (alert.Alert, error)
}

// StatusRecorder keeps the shared up/down snapshot that the stats endpoint
// reads. Failures here are logged, never fatal to the check cycle.
type StatusRecorder interface {
	SetLastStatus(ctx context.Context, monitorID int64, up bool) error
	DelLastStatus(ctx context.Context, monitorID int64) error
}

// Scheduler polls the monitor store and fans due checks out concurrently.
// Monitors are picked up and dropped between ticks without a restart.
type Scheduler struct {
	monitors MonitorStore
	results  ResultRecorder
	prober   Prober
	engine   RuleEvaluator
	alerts   AlertCreator

	interval time.Duration

	mu         sync.Mutex
	registered map[int64]struct{}

	statuses StatusRecorder

	logger *zerolog.Logger
	now    func() time.Time
}

func New(monitors MonitorStore, results ResultRecorder, prober Prober, engine RuleEvaluator, alerts AlertCreator, interval time.Duration, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{
		monitors:   monitors,
		results:    results,
		prober:     prober,
		engine:     engine,
		alerts:     alerts,
		interval:   interval,
		registered: make(map[int64]struct{}),
		logger:     logger,
		now:        time.Now,
	}
}

// SetStatusRecorder is optional; without it the status snapshot is skipped.
func (s *Scheduler) SetStatusRecorder(rec StatusRecorder) {
	s.statuses = rec
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	monitors, err := s.monitors.ListEnabled(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list enabled monitors")
		return
	}

	due := make([]monitor.Monitor, 0, len(monitors))
	now := s.now()
	for _, m := range monitors {
		s.ensureRegistered(m.ID)
		if m.IsDue(now) {
			due = append(due, m)
		}
	}
	if len(due) == 0 {
		return
	}

	s.logger.Debug().Int("due", len(due)).Int("enabled", len(monitors)).Msg("running checks")

	var wg sync.WaitGroup
	for _, m := range due {
		wg.Add(1)
		go func(m monitor.Monitor) {
			defer wg.Done()
			s.checkMonitor(ctx, m)
		}(m)
	}
	wg.Wait()
}

// ensureRegistered attaches the default rule set exactly once per monitor.
func (s *Scheduler) ensureRegistered(monitorID int64) {
	s.mu.Lock()
	_, ok := s.registered[monitorID]
	if !ok {
		s.registered[monitorID] = struct{}{}
	}
	s.mu.Unlock()
	if !ok {
		s.engine.RegisterRules(monitorID, rule.Defaults())
	}
}

// checkMonitor runs one full cycle for a monitor: probe, persist, evaluate,
// raise alerts. Any one monitor failing never disturbs the rest of the batch.
func (s *Scheduler) checkMonitor(ctx context.Context, m monitor.Monitor) {
	res, err := s.prober.Check(ctx, m)
	if err != nil {
		s.logger.Error().Err(err).Int64("monitor_id", m.ID).Msg("check aborted")
		return
	}

	saved, err := s.results.RecordResult(ctx, res)
	if err != nil {
		s.logger.Error().Err(err).Int64("monitor_id", m.ID).Msg("failed to record check result")
		return
	}

	if s.statuses != nil {
		if err := s.statuses.SetLastStatus(ctx, m.ID, saved.Success); err != nil {
			s.logger.Warn().Err(err).Int64("monitor_id", m.ID).Msg("failed to update status snapshot")
		}
	}

	for _, d := range s.engine.EvaluateAll(ctx, m.Name, saved) {
		if _, err := s.alerts.Create(ctx, d); err != nil {
			s.logger.Error().Err(err).
				Int64("monitor_id", m.ID).
				Str("title", d.Title).
				Msg("failed to create alert")
		}
	}
}

// ReloadMonitorRules re-registers rules after a monitor changed.
func (s *Scheduler) ReloadMonitorRules(ctx context.Context, monitorID int64) error {
	m, err := s.monitors.GetByID(ctx, monitorID)
	if err != nil {
		return err
	}
	if !m.Enabled {
		s.RemoveMonitor(monitorID)
		return nil
	}

	s.mu.Lock()
	s.registered[monitorID] = struct{}{}
	s.mu.Unlock()
	s.engine.RegisterRules(monitorID, rule.Defaults())
	return nil
}

// RemoveMonitor detaches a deleted or disabled monitor from scheduling.
func (s *Scheduler) RemoveMonitor(monitorID int64) {
	s.mu.Lock()
	delete(s.registered, monitorID)
	s.mu.Unlock()
	s.engine.UnregisterRules(monitorID)

	if s.statuses != nil {
		if err := s.statuses.DelLastStatus(context.Background(), monitorID); err != nil {
			s.logger.Warn().Err(err).Int64("monitor_id", monitorID).Msg("failed to drop status snapshot")
		}
	}
}
