// Package schedule implements the appointment read and write paths: range
// queries backed by the in-process schedule cache, and mutations that write
// through to the store before invalidating the affected professional's
// cache entries.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"agendado/backend/internal/cache"
	"agendado/backend/internal/domain"
	"agendado/backend/internal/store"
)

type QueryService struct {
	repo  store.AppointmentRepository
	cache *cache.ScheduleCache
	log   *slog.Logger
}

func NewQueryService(repo store.AppointmentRepository, c *cache.ScheduleCache, log *slog.Logger) *QueryService {
	if log == nil {
		log = slog.Default()
	}
	return &QueryService{
		repo:  repo,
		cache: c,
		log:   log.With(slog.String("component", "schedule.query")),
	}
}

// ListByProfessionalAndRange returns the professional's non-cancelled
// appointments with date in [rangeStart, rangeEnd], ordered by date then
// start time. Results are served from the cache when present; a miss fetches
// from the store and populates the cache under the generation captured before
// the fetch, so a concurrent invalidation wins over the stale snapshot.
//
// Store failures are fail-soft: the error is returned for observability
// together with an empty, renderable slice, and nothing is cached.
func (s *QueryService) ListByProfessionalAndRange(ctx context.Context, professionalID int64, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error) {
	if professionalID <= 0 {
		return nil, validationError("professional_id must be positive")
	}
	if rangeStart.After(rangeEnd) {
		return nil, validationError("range_start must not be after range_end")
	}

	key := cache.Key(professionalID, rangeStart, rangeEnd)
	if appts, ok := s.cache.Get(key); ok {
		s.log.Debug("cache hit", slog.String("key", key), slog.Int("count", len(appts)))
		return appts, nil
	}

	generation := s.cache.Generation(professionalID)

	appts, err := s.repo.ListByProfessionalAndRange(ctx, professionalID, rangeStart, rangeEnd)
	if err != nil {
		s.log.Error("range query failed",
			slog.Any("err", err),
			slog.Int64("professional_id", professionalID),
			slog.Time("range_start", rangeStart),
			slog.Time("range_end", rangeEnd),
		)
		return []domain.Appointment{}, err
	}

	stored := s.cache.Put(key, professionalID, generation, appts)
	s.log.Debug("cache populated",
		slog.String("key", key),
		slog.Int("count", len(appts)),
		slog.Bool("stored", stored),
	)

	return appts, nil
}

// ListByProfessional is the legacy unbounded listing. It deliberately
// bypasses the cache in both directions and always reflects the store.
func (s *QueryService) ListByProfessional(ctx context.Context, professionalID int64) ([]domain.Appointment, error) {
	if professionalID <= 0 {
		return nil, validationError("professional_id must be positive")
	}

	appts, err := s.repo.ListByProfessional(ctx, professionalID)
	if err != nil {
		s.log.Error("list failed", slog.Any("err", err), slog.Int64("professional_id", professionalID))
		return []domain.Appointment{}, err
	}
	return appts, nil
}

// InvalidateProfessional drops every cached range for the professional.
func (s *QueryService) InvalidateProfessional(professionalID int64) {
	s.cache.InvalidateProfessional(professionalID)
}

// InvalidateAll drops every cached range.
func (s *QueryService) InvalidateAll() {
	s.cache.Clear()
}
