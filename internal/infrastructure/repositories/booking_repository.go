package repositories

import (
	"context"
	"fmt"

	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Every write returns the full row so client_id and pro_id are always present.
const bookingColumns = `id, client_id, pro_id, service_id, status, scheduled_at, notes, created_at, updated_at`

type BookingRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewBookingRepository(database *db.Database, logger *logrus.Logger) ports.BookingRepository {
	return &BookingRepository{db: database, logger: logger}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = booking.StatusPending
	}
	query := `
		INSERT INTO bookings (id, client_id, pro_id, service_id, status, scheduled_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + bookingColumns
	var out booking.Booking
	err := r.db.DB.GetContext(ctx, &out, query, b.ID, b.ClientID, b.ProID, b.ServiceID, b.Status, b.ScheduledAt, b.Notes)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"client_id": b.ClientID, "pro_id": b.ProID}).WithError(err).Error("db: failed to create booking")
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"booking_id": out.ID}).Info("db: booking created")
	}
	return &out, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	var out booking.Booking
	if err := r.db.DB.GetContext(ctx, &out, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "booking", id, "get")
	}
	return &out, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID, status booking.Status) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE (client_id = $1 OR pro_id = $1)`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY scheduled_at`

	out := []*booking.Booking{}
	if err := r.db.DB.SelectContext(ctx, &out, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": userID, "status": status}).WithError(err).Error("db: failed to list bookings")
		}
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return out, nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	query := `
		UPDATE bookings SET scheduled_at = $2, notes = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns
	var out booking.Booking
	if err := r.db.DB.GetContext(ctx, &out, query, b.ID, b.ScheduledAt, b.Notes); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"booking_id": b.ID}).WithError(err).Error("db: failed to update booking")
		}
		return nil, notFound(err, "booking", b.ID, "update")
	}
	return &out, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) (*booking.Booking, error) {
	query := `
		UPDATE bookings SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns
	var out booking.Booking
	if err := r.db.DB.GetContext(ctx, &out, query, id, status); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"booking_id": id, "status": status}).WithError(err).Error("db: failed to update booking status")
		}
		return nil, notFound(err, "booking", id, "update")
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"booking_id": id, "status": status}).Info("db: booking status changed")
	}
	return &out, nil
}
