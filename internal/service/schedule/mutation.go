package schedule

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"agendado/backend/internal/cache"
	"agendado/backend/internal/domain"
	"agendado/backend/internal/store"
)

// MutationService writes appointments through to the store. Cache entries of
// the affected professional are invalidated only after the store confirms the
// write: a failed write never evicts valid cache state.
type MutationService struct {
	repo  store.AppointmentRepository
	cache *cache.ScheduleCache
	log   *slog.Logger
	now   func() time.Time
}

func NewMutationService(repo store.AppointmentRepository, c *cache.ScheduleCache, log *slog.Logger) *MutationService {
	if log == nil {
		log = slog.Default()
	}
	return &MutationService{
		repo:  repo,
		cache: c,
		log:   log.With(slog.String("component", "schedule.mutation")),
		now:   time.Now,
	}
}

type CreateInput struct {
	ProfessionalID int64
	ClientID       int64
	CreatedBy      uuid.UUID
	Date           time.Time
	StartTime      string
	EndTime        string
	Title          string
	Description    string
	Color          string
}

func (s *MutationService) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Appointment{}, validationError("title is required")
	}
	if in.ProfessionalID <= 0 {
		return domain.Appointment{}, validationError("professional_id must be positive")
	}
	if in.ClientID <= 0 {
		return domain.Appointment{}, validationError("client_id must be positive")
	}
	if in.Date.IsZero() {
		return domain.Appointment{}, validationError("date is required")
	}

	startTime, err := domain.NormalizeClockTime(in.StartTime)
	if err != nil {
		return domain.Appointment{}, err
	}
	endTime, err := domain.NormalizeClockTime(in.EndTime)
	if err != nil {
		return domain.Appointment{}, err
	}

	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = domain.DefaultColor
	}

	appt := domain.Appointment{
		ProfessionalID: in.ProfessionalID,
		ClientID:       in.ClientID,
		CreatedBy:      in.CreatedBy,
		Date:           in.Date,
		StartTime:      startTime,
		EndTime:        endTime,
		Title:          title,
		Description:    in.Description,
		Color:          color,
		Cancelled:      false,
	}

	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		s.log.Error("appointment create failed",
			slog.Any("err", err),
			slog.Int64("professional_id", in.ProfessionalID),
		)
		return domain.Appointment{}, err
	}

	s.cache.InvalidateProfessional(created.ProfessionalID)
	s.log.Info("appointment created",
		slog.Int64("appointment_id", created.ID),
		slog.Int64("professional_id", created.ProfessionalID),
		slog.Time("date", created.Date),
	)
	return created, nil
}

type EditInput struct {
	Title       string
	Description string
	Color       string
}

// Edit updates title, description and color. Professional, client, date and
// times are immutable through this path.
func (s *MutationService) Edit(ctx context.Context, appointmentID int64, in EditInput) (domain.Appointment, error) {
	if appointmentID <= 0 {
		return domain.Appointment{}, validationError("appointment_id must be positive")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Appointment{}, validationError("title is required")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = domain.DefaultColor
	}

	updated, err := s.repo.UpdateDetails(ctx, appointmentID, title, in.Description, color)
	if err != nil {
		s.log.Error("appointment edit failed", slog.Any("err", err), slog.Int64("appointment_id", appointmentID))
		return domain.Appointment{}, err
	}

	s.cache.InvalidateProfessional(updated.ProfessionalID)
	s.log.Info("appointment edited",
		slog.Int64("appointment_id", updated.ID),
		slog.Int64("professional_id", updated.ProfessionalID),
	)
	return updated, nil
}

// Cancel marks the appointment cancelled and stamps the cancellation time.
// The row is kept; range queries stop returning it.
func (s *MutationService) Cancel(ctx context.Context, appointmentID int64) (domain.Appointment, error) {
	if appointmentID <= 0 {
		return domain.Appointment{}, validationError("appointment_id must be positive")
	}

	updated, err := s.repo.Cancel(ctx, appointmentID, s.now().UTC())
	if err != nil {
		s.log.Error("appointment cancel failed", slog.Any("err", err), slog.Int64("appointment_id", appointmentID))
		return domain.Appointment{}, err
	}

	s.cache.InvalidateProfessional(updated.ProfessionalID)
	s.log.Info("appointment cancelled",
		slog.Int64("appointment_id", updated.ID),
		slog.Int64("professional_id", updated.ProfessionalID),
	)
	return updated, nil
}
