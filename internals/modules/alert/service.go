package alert

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// dedupWindow is how far back Create looks for an identical open alert.
const dedupWindow = 15 * time.Minute

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, d Draft) (Alert, error)
	FindDuplicate(ctx context.Context, d Draft, windowStart time.Time) (*Alert, error)
	GetByID(ctx context.Context, id int64) (Alert, error)
	List(ctx context.Context, f ListFilter) ([]Alert, int64, error)
	SetAcknowledged(ctx context.Context, id int64) error
	SetResolved(ctx context.Context, id int64, at time.Time) error
	BulkResolve(ctx context.Context, monitorID int64, severity *Severity, at time.Time) (int64, error)
	ResolveOlderThan(ctx context.Context, cutoff, at time.Time) (int64, error)
}

type Service struct {
	store  Store
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Create persists a draft unless an identical unresolved alert already exists
// inside the dedup window, in which case that alert is returned instead.
func (s *Service) Create(ctx context.Context, d Draft) (Alert, error) {
	windowStart := s.now().Add(-dedupWindow)
	existing, err := s.store.FindDuplicate(ctx, d, windowStart)
	if err != nil {
		return Alert{}, err
	}
	if existing != nil {
		s.logger.Debug().
			Int64("alert_id", existing.ID).
			Int64("monitor_id", d.MonitorID).
			Msg("duplicate alert suppressed")
		return *existing, nil
	}

	a, err := s.store.Create(ctx, d)
	if err != nil {
		return Alert{}, err
	}
	s.logger.Info().
		Int64("alert_id", a.ID).
		Int64("monitor_id", a.MonitorID).
		Str("severity", string(a.Severity)).
		Str("title", a.Title).
		Msg("alert created")
	return a, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Alert, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Alert, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.store.List(ctx, f)
}

func (s *Service) Resolve(ctx context.Context, id int64) (Alert, error) {
	if err := s.store.SetResolved(ctx, id, s.now()); err != nil {
		return Alert{}, err
	}
	return s.store.GetByID(ctx, id)
}

func (s *Service) Acknowledge(ctx context.Context, id int64) (Alert, error) {
	if err := s.store.SetAcknowledged(ctx, id); err != nil {
		return Alert{}, err
	}
	return s.store.GetByID(ctx, id)
}

// BulkResolve closes every open alert for a monitor, optionally narrowed to
// one severity. Returns the number resolved.
func (s *Service) BulkResolve(ctx context.Context, monitorID int64, severity *Severity) (int64, error) {
	n, err := s.store.BulkResolve(ctx, monitorID, severity, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("monitor_id", monitorID).Int64("resolved", n).Msg("alerts bulk resolved")
	}
	return n, nil
}

// AutoResolveStale closes open alerts older than maxAge.
func (s *Service) AutoResolveStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	now := s.now()
	n, err := s.store.ResolveOlderThan(ctx, now.Add(-maxAge), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("resolved", n).Dur("max_age", maxAge).Msg("stale alerts auto resolved")
	}
	return n, nil
}
