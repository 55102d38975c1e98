package repositories

import (
	"context"
	"fmt"

	"github.com/avatarctic/services-marketplace/internal/core/domain/dispute"
	"github.com/avatarctic/services-marketplace/internal/core/domain/messaging"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MessageRepository stores messages between marketplace users.
type MessageRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewMessageRepository(database *db.Database, logger *logrus.Logger) ports.MessageRepository {
	return &MessageRepository{db: database, logger: logger}
}

func (r *MessageRepository) Create(ctx context.Context, m *messaging.Message) (*messaging.Message, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `
		INSERT INTO messages (id, sender_id, recipient_id, booking_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, sender_id, recipient_id, booking_id, body, created_at`
	var out messaging.Message
	if err := r.db.DB.GetContext(ctx, &out, query, m.ID, m.SenderID, m.RecipientID, m.BookingID, m.Body); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"sender_id": m.SenderID, "recipient_id": m.RecipientID}).WithError(err).Error("db: failed to store message")
		}
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	return &out, nil
}

// DisputeRepository stores disputes filed against bookings.
type DisputeRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewDisputeRepository(database *db.Database, logger *logrus.Logger) ports.DisputeRepository {
	return &DisputeRepository{db: database, logger: logger}
}

func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) (*dispute.Dispute, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = dispute.StatusOpen
	}
	query := `
		INSERT INTO disputes (id, booking_id, filed_by, reason, details, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, booking_id, filed_by, reason, details, status, created_at`
	var out dispute.Dispute
	if err := r.db.DB.GetContext(ctx, &out, query, d.ID, d.BookingID, d.FiledBy, d.Reason, d.Details, d.Status); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"booking_id": d.BookingID, "filed_by": d.FiledBy}).WithError(err).Error("db: failed to file dispute")
		}
		return nil, fmt.Errorf("failed to file dispute: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"dispute_id": out.ID, "booking_id": out.BookingID}).Info("db: dispute filed")
	}
	return &out, nil
}
