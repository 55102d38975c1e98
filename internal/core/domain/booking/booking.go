package booking

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ClientID    uuid.UUID `json:"client_id" db:"client_id"`
	ProID       uuid.UUID `json:"pro_id" db:"pro_id"`
	ServiceID   uuid.UUID `json:"service_id" db:"service_id"`
	Status      Status    `json:"status" db:"status"`
	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

type CreateBookingRequest struct {
	ProID       uuid.UUID `json:"pro_id" validate:"required"`
	ServiceID   uuid.UUID `json:"service_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes"`
}

type UpdateBookingRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

func (r *UpdateBookingRequest) Apply(b *Booking) {
	if r.ScheduledAt != nil {
		b.ScheduledAt = *r.ScheduledAt
	}
	if r.Notes != nil {
		b.Notes = *r.Notes
	}
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}
