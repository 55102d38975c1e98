package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/avatarctic/services-marketplace/internal/core/domain/review"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const reviewColumns = `id, booking_id, service_id, pro_id, client_id, rating, comment, created_at`

type ReviewRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewReviewRepository(database *db.Database, logger *logrus.Logger) ports.ReviewRepository {
	return &ReviewRepository{db: database, logger: logger}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) (*review.Review, error) {
	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	query := `
		INSERT INTO reviews (id, booking_id, service_id, pro_id, client_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + reviewColumns
	var out review.Review
	err := r.db.DB.GetContext(ctx, &out, query, rv.ID, rv.BookingID, rv.ServiceID, rv.ProID, rv.ClientID, rv.Rating, rv.Comment)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"booking_id": rv.BookingID}).WithError(err).Error("db: failed to create review")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return &out, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*review.Review, error) {
	var out review.Review
	if err := r.db.DB.GetContext(ctx, &out, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "review", id, "get")
	}
	return &out, nil
}

func (r *ReviewRepository) List(ctx context.Context, f review.Filter) ([]*review.Review, error) {
	var where []string
	args := []interface{}{}
	if f.ServiceID != nil {
		args = append(args, *f.ServiceID)
		where = append(where, fmt.Sprintf("service_id = $%d", len(args)))
	}
	if f.ProID != nil {
		args = append(args, *f.ProID)
		where = append(where, fmt.Sprintf("pro_id = $%d", len(args)))
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	out := []*review.Review{}
	if err := r.db.DB.SelectContext(ctx, &out, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"service_id": f.ServiceID, "pro_id": f.ProID}).WithError(err).Error("db: failed to list reviews")
		}
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return out, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, r.logger, "reviews", "review", id)
}
