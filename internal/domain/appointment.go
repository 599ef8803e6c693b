package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultColor is applied to appointments created without an explicit color.
const DefaultColor = "#DBE9FE"

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID             int64      `bun:"id,pk,autoincrement"`
	ProfessionalID int64      `bun:"professional_id,notnull"`
	ClientID       int64      `bun:"client_id,notnull"`
	CreatedBy      uuid.UUID  `bun:"user_id,type:uuid"`
	Date           time.Time  `bun:"date,notnull,type:date"`
	StartTime      string     `bun:"start_time,notnull"`
	EndTime        string     `bun:"end_time,notnull"`
	Title          string     `bun:"title,notnull"`
	Description    string     `bun:"description"`
	Color          string     `bun:"color,notnull"`
	Cancelled      bool       `bun:"cancelled,notnull,default:false"`
	CancelledAt    *time.Time `bun:"cancelled_at"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
