package heartbeat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   *Repository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(repo *Repository, logger *zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, cmd CreateHeartbeatCmd) (Heartbeat, error) {
	hb, err := s.repo.Create(ctx, cmd)
	if err != nil {
		return Heartbeat{}, err
	}
	s.logger.Info().Int64("heartbeat_id", hb.ID).Str("name", hb.Name).Msg("heartbeat created")
	return hb, nil
}

func (s *Service) Get(ctx context.Context, publicID uuid.UUID) (Heartbeat, error) {
	return s.repo.GetByPublicID(ctx, publicID)
}

func (s *Service) List(ctx context.Context, limit, offset int32) ([]Heartbeat, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, publicID uuid.UUID, cmd UpdateHeartbeatCmd) (Heartbeat, error) {
	return s.repo.Update(ctx, publicID, cmd)
}

func (s *Service) Delete(ctx context.Context, publicID uuid.UUID) error {
	return s.repo.Delete(ctx, publicID)
}

// Ping records a liveness signal for the heartbeat.
func (s *Service) Ping(ctx context.Context, publicID uuid.UUID) (Heartbeat, error) {
	hb, err := s.repo.Ping(ctx, publicID, s.now())
	if err != nil {
		return Heartbeat{}, err
	}
	s.logger.Debug().Int64("heartbeat_id", hb.ID).Msg("heartbeat ping")
	return hb, nil
}

// Healthy reports whether the last ping arrived inside the expected interval,
// with a small grace factor for clock skew and delivery jitter.
func (hb Heartbeat) Healthy(now time.Time) bool {
	if hb.LastHeartbeatAt == nil {
		return false
	}
	grace := time.Duration(float64(hb.ExpectedIntervalSec)*1.5) * time.Second
	return now.Sub(*hb.LastHeartbeatAt) <= grace
}
