package dispute

import (
	"time"

	"github.com/google/uuid"
)

type Dispute struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookingID uuid.UUID `json:"booking_id" db:"booking_id"`
	FiledBy   uuid.UUID `json:"filed_by" db:"filed_by"`
	Reason    string    `json:"reason" db:"reason"`
	Details   string    `json:"details" db:"details"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
	StatusRejected Status = "rejected"
)

type FileDisputeRequest struct {
	BookingID uuid.UUID `json:"booking_id" validate:"required"`
	Reason    string    `json:"reason" validate:"required,max=200"`
	Details   string    `json:"details" validate:"max=4000"`
}
