package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Cache is the read-through cache for monitor lookups by public id.
type Cache interface {
	GetMonitor(ctx context.Context, publicID uuid.UUID) (*Monitor, error)
	SetMonitor(ctx context.Context, m Monitor, ttl time.Duration) error
	DelMonitor(ctx context.Context, publicID uuid.UUID) error
}

// SchedulerHook lets the service notify the scheduler about lifecycle
// changes without importing it.
type SchedulerHook interface {
	ReloadMonitorRules(ctx context.Context, monitorID int64) error
	RemoveMonitor(monitorID int64)
}

const cacheTTL = 5 * time.Minute

type Service struct {
	repo      *Repository
	cache     Cache
	scheduler SchedulerHook
	logger    *zerolog.Logger
}

func NewService(repo *Repository, cache Cache, logger *zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// SetSchedulerHook wires the scheduler in after construction; the scheduler
// itself depends on the monitor store.
func (s *Service) SetSchedulerHook(hook SchedulerHook) {
	s.scheduler = hook
}

func (s *Service) Create(ctx context.Context, cmd CreateMonitorCmd) (Monitor, error) {
	m, err := s.repo.Create(ctx, cmd)
	if err != nil {
		return Monitor{}, err
	}
	s.logger.Info().
		Int64("monitor_id", m.ID).
		Str("url", m.URL).
		Msg("monitor created")
	return m, nil
}

// Get serves from the cache when possible, falling back to the database.
func (s *Service) Get(ctx context.Context, publicID uuid.UUID) (Monitor, error) {
	if s.cache != nil {
		if m, err := s.cache.GetMonitor(ctx, publicID); err == nil && m != nil {
			return *m, nil
		}
	}

	m, err := s.repo.GetByPublicID(ctx, publicID)
	if err != nil {
		return Monitor{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetMonitor(ctx, m, cacheTTL); err != nil {
			s.logger.Warn().Err(err).Int64("monitor_id", m.ID).Msg("failed to cache monitor")
		}
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, limit, offset int32, enabledOnly bool) ([]Monitor, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset, enabledOnly)
}

func (s *Service) Update(ctx context.Context, publicID uuid.UUID, cmd UpdateMonitorCmd) (Monitor, error) {
	m, err := s.repo.Update(ctx, publicID, cmd)
	if err != nil {
		return Monitor{}, err
	}
	s.invalidate(ctx, publicID)

	if s.scheduler != nil {
		if err := s.scheduler.ReloadMonitorRules(ctx, m.ID); err != nil {
			s.logger.Warn().Err(err).Int64("monitor_id", m.ID).Msg("failed to reload monitor rules")
		}
	}
	s.logger.Info().Int64("monitor_id", m.ID).Msg("monitor updated")
	return m, nil
}

func (s *Service) Delete(ctx context.Context, publicID uuid.UUID) error {
	id, err := s.repo.Delete(ctx, publicID)
	if err != nil {
		return err
	}
	s.invalidate(ctx, publicID)

	if s.scheduler != nil {
		s.scheduler.RemoveMonitor(id)
	}
	s.logger.Info().Int64("monitor_id", id).Msg("monitor deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context, publicID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DelMonitor(ctx, publicID); err != nil {
		s.logger.Warn().Err(err).Str("public_id", publicID.String()).Msg("failed to invalidate monitor cache")
	}
}
