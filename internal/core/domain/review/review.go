package review

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookingID uuid.UUID `json:"booking_id" db:"booking_id"`
	ServiceID uuid.UUID `json:"service_id" db:"service_id"`
	ProID     uuid.UUID `json:"pro_id" db:"pro_id"`
	ClientID  uuid.UUID `json:"client_id" db:"client_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Filter selects reviews by service, by pro, or both. The zero Filter selects all reviews.
type Filter struct {
	ServiceID *uuid.UUID
	ProID     *uuid.UUID
}

type CreateReviewRequest struct {
	BookingID uuid.UUID `json:"booking_id" validate:"required"`
	ServiceID uuid.UUID `json:"service_id" validate:"required"`
	ProID     uuid.UUID `json:"pro_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Comment   string    `json:"comment" validate:"max=2000"`
}
