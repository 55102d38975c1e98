package repositories

import (
	"context"
	"fmt"

	"github.com/avatarctic/services-marketplace/internal/core/domain/location"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const cityColumns = `id, name, region, country, is_active, created_at, updated_at`

type CityRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewCityRepository(database *db.Database, logger *logrus.Logger) ports.CityRepository {
	return &CityRepository{db: database, logger: logger}
}

func (r *CityRepository) Create(ctx context.Context, c *location.City) (*location.City, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO cities (id, name, region, country, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + cityColumns
	var out location.City
	if err := r.db.DB.GetContext(ctx, &out, query, c.ID, c.Name, c.Region, c.Country, c.IsActive); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"city": c.Name}).WithError(err).Error("db: failed to create city")
		}
		return nil, fmt.Errorf("failed to create city: %w", err)
	}
	return &out, nil
}

func (r *CityRepository) GetByID(ctx context.Context, id uuid.UUID) (*location.City, error) {
	var out location.City
	if err := r.db.DB.GetContext(ctx, &out, `SELECT `+cityColumns+` FROM cities WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "city", id, "get")
	}
	return &out, nil
}

// List returns active cities ordered by name, optionally only those named city (case-insensitive).
func (r *CityRepository) List(ctx context.Context, city string) ([]*location.City, error) {
	query := `SELECT ` + cityColumns + ` FROM cities WHERE is_active = TRUE`
	args := []interface{}{}
	if city != "" {
		query += ` AND LOWER(name) = LOWER($1)`
		args = append(args, city)
	}
	query += ` ORDER BY name`

	out := []*location.City{}
	if err := r.db.DB.SelectContext(ctx, &out, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"city": city}).WithError(err).Error("db: failed to list cities")
		}
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return out, nil
}

func (r *CityRepository) Update(ctx context.Context, c *location.City) (*location.City, error) {
	query := `
		UPDATE cities SET name = $2, region = $3, country = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + cityColumns
	var out location.City
	if err := r.db.DB.GetContext(ctx, &out, query, c.ID, c.Name, c.Region, c.Country, c.IsActive); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"city_id": c.ID}).WithError(err).Error("db: failed to update city")
		}
		return nil, notFound(err, "city", c.ID, "update")
	}
	return &out, nil
}

func (r *CityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, r.logger, "cities", "city", id)
}
