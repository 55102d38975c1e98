package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const userColumns = `id, email, first_name, last_name, role, city_id, phone, bio, is_active, created_at, updated_at`

// UserRepository implements the user repository interface
type UserRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(database *db.Database, logger *logrus.Logger) ports.UserRepository {
	return &UserRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a user and returns the stored row
func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, email, first_name, last_name, role, city_id, phone, bio, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	var out user.User
	err := r.db.DB.GetContext(ctx, &out, query,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.CityID, u.Phone, u.Bio, u.IsActive)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).WithError(err).Error("db: failed to create user")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": out.ID, "email": out.Email}).Info("db: user created")
	}
	return &out, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var u user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	err := r.db.DB.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"user_id": id}).Debug("db: user not found by ID")
			}
			return nil, fmt.Errorf("user with ID %s: %w", id, ports.ErrNotFound)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": id}).WithError(err).Error("db: failed to get user by ID")
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &u, nil
}

// Update writes the mutable profile fields and returns the stored row
func (r *UserRepository) Update(ctx context.Context, u *user.User) (*user.User, error) {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, role = $5, city_id = $6,
			phone = $7, bio = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var out user.User
	err := r.db.DB.GetContext(ctx, &out, query,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.CityID, u.Phone, u.Bio, u.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"user_id": u.ID}).Debug("db: update affected 0 rows - user not found")
			}
			return nil, fmt.Errorf("user with ID %s: %w", u.ID, ports.ErrNotFound)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": u.ID}).WithError(err).Error("db: failed to update user")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &out, nil
}

// Delete deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, r.logger, "users", "user", id)
}

// execDelete removes one row by id and maps a miss to ports.ErrNotFound.
func execDelete(ctx context.Context, database *db.Database, logger *logrus.Logger, table, entity string, id uuid.UUID) error {
	result, err := database.DB.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if logger != nil {
			logger.WithFields(logrus.Fields{entity + "_id": id}).WithError(err).Errorf("db: failed to delete %s", entity)
		}
		return fmt.Errorf("failed to delete %s: %w", entity, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s with ID %s: %w", entity, id, ports.ErrNotFound)
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{entity + "_id": id}).Infof("db: %s deleted", entity)
	}
	return nil
}

// notFound maps sql.ErrNoRows to ports.ErrNotFound and wraps everything else.
func notFound(err error, entity string, id uuid.UUID, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s with ID %s: %w", entity, id, ports.ErrNotFound)
	}
	return fmt.Errorf("failed to %s %s: %w", op, entity, err)
}
