package messaging

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	SenderID    uuid.UUID  `json:"sender_id" db:"sender_id"`
	RecipientID uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	Body        string     `json:"body" db:"body"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type SendMessageRequest struct {
	RecipientID uuid.UUID  `json:"recipient_id" validate:"required"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty"`
	Body        string     `json:"body" validate:"required,max=4000"`
}
