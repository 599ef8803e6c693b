package store

import (
	"context"
	"time"

	"agendado/backend/internal/domain"
)

// AppointmentRepository is the backing-store contract for appointment rows.
// Range listings are inclusive on both date bounds, exclude cancelled rows
// and come back ordered by (date asc, start_time asc).
type AppointmentRepository interface {
	ListByProfessionalAndRange(ctx context.Context, professionalID int64, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error)
	ListByProfessional(ctx context.Context, professionalID int64) ([]domain.Appointment, error)

	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateDetails(ctx context.Context, appointmentID int64, title, description, color string) (domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID int64, cancelledAt time.Time) (domain.Appointment, error)
}
