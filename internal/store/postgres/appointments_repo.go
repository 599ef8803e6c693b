package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"agendado/backend/internal/domain"
	"agendado/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) ListByProfessionalAndRange(ctx context.Context, professionalID int64, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error) {
	rows := make([]domain.Appointment, 0)
	err := r.db.NewSelect().
		Model(&rows).
		Where("professional_id = ?", professionalID).
		Where("cancelled = FALSE").
		Where("date >= ?", rangeStart).
		Where("date <= ?", rangeEnd).
		OrderExpr("date ASC, start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListByProfessional(ctx context.Context, professionalID int64) ([]domain.Appointment, error) {
	rows := make([]domain.Appointment, 0)
	err := r.db.NewSelect().
		Model(&rows).
		Where("professional_id = ?", professionalID).
		Where("cancelled = FALSE").
		OrderExpr("date ASC, start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	m.ID = 0
	m.Cancelled = false
	m.CancelledAt = nil

	_, err := r.db.NewInsert().
		Model(&m).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) UpdateDetails(ctx context.Context, appointmentID int64, title, description, color string) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:          appointmentID,
		Title:       title,
		Description: description,
		Color:       color,
	}

	res, err := r.db.NewUpdate().
		Model(&m).
		Column("title", "description", "color", "updated_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, notFoundOnNoRows(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Cancel(ctx context.Context, appointmentID int64, cancelledAt time.Time) (domain.Appointment, error) {
	ts := cancelledAt.UTC()
	m := domain.Appointment{
		ID:          appointmentID,
		Cancelled:   true,
		CancelledAt: &ts,
	}

	res, err := r.db.NewUpdate().
		Model(&m).
		Column("cancelled", "cancelled_at", "updated_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, notFoundOnNoRows(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func notFoundOnNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
