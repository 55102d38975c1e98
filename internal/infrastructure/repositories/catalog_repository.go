package repositories

import (
	"context"
	"fmt"

	"github.com/avatarctic/services-marketplace/internal/core/domain/catalog"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	categoryColumns = `id, name, slug, description, created_at, updated_at`
	serviceColumns  = `id, category_id, pro_id, title, description, price_cents, is_active, created_at, updated_at`
)

type ServiceCategoryRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewServiceCategoryRepository(database *db.Database, logger *logrus.Logger) ports.ServiceCategoryRepository {
	return &ServiceCategoryRepository{db: database, logger: logger}
}

func (r *ServiceCategoryRepository) Create(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO service_categories (id, name, slug, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + categoryColumns
	var out catalog.ServiceCategory
	if err := r.db.DB.GetContext(ctx, &out, query, c.ID, c.Name, c.Slug, c.Description); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"slug": c.Slug}).WithError(err).Error("db: failed to create service category")
		}
		return nil, fmt.Errorf("failed to create service category: %w", err)
	}
	return &out, nil
}

func (r *ServiceCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.ServiceCategory, error) {
	var out catalog.ServiceCategory
	if err := r.db.DB.GetContext(ctx, &out, `SELECT `+categoryColumns+` FROM service_categories WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "service category", id, "get")
	}
	return &out, nil
}

func (r *ServiceCategoryRepository) List(ctx context.Context) ([]*catalog.ServiceCategory, error) {
	out := []*catalog.ServiceCategory{}
	if err := r.db.DB.SelectContext(ctx, &out, `SELECT `+categoryColumns+` FROM service_categories ORDER BY name`); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list service categories")
		}
		return nil, fmt.Errorf("failed to list service categories: %w", err)
	}
	return out, nil
}

func (r *ServiceCategoryRepository) Update(ctx context.Context, c *catalog.ServiceCategory) (*catalog.ServiceCategory, error) {
	query := `
		UPDATE service_categories SET name = $2, slug = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + categoryColumns
	var out catalog.ServiceCategory
	if err := r.db.DB.GetContext(ctx, &out, query, c.ID, c.Name, c.Slug, c.Description); err != nil {
		return nil, notFound(err, "service category", c.ID, "update")
	}
	return &out, nil
}

func (r *ServiceCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, r.logger, "service_categories", "service category", id)
}

type ServiceRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewServiceRepository(database *db.Database, logger *logrus.Logger) ports.ServiceRepository {
	return &ServiceRepository{db: database, logger: logger}
}

func (r *ServiceRepository) Create(ctx context.Context, s *catalog.Service) (*catalog.Service, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO services (id, category_id, pro_id, title, description, price_cents, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + serviceColumns
	var out catalog.Service
	err := r.db.DB.GetContext(ctx, &out, query, s.ID, s.CategoryID, s.ProID, s.Title, s.Description, s.PriceCents, s.IsActive)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"pro_id": s.ProID, "category_id": s.CategoryID}).WithError(err).Error("db: failed to create service")
		}
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return &out, nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error) {
	var out catalog.Service
	if err := r.db.DB.GetContext(ctx, &out, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "service", id, "get")
	}
	return &out, nil
}

func (r *ServiceRepository) List(ctx context.Context, categoryID *uuid.UUID) ([]*catalog.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE is_active = TRUE`
	args := []interface{}{}
	if categoryID != nil {
		query += ` AND category_id = $1`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY created_at DESC`

	out := []*catalog.Service{}
	if err := r.db.DB.SelectContext(ctx, &out, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"category_id": categoryID}).WithError(err).Error("db: failed to list services")
		}
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return out, nil
}

func (r *ServiceRepository) Update(ctx context.Context, s *catalog.Service) (*catalog.Service, error) {
	query := `
		UPDATE services
		SET category_id = $2, title = $3, description = $4, price_cents = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + serviceColumns
	var out catalog.Service
	if err := r.db.DB.GetContext(ctx, &out, query, s.ID, s.CategoryID, s.Title, s.Description, s.PriceCents, s.IsActive); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"service_id": s.ID}).WithError(err).Error("db: failed to update service")
		}
		return nil, notFound(err, "service", s.ID, "update")
	}
	return &out, nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execDelete(ctx, r.db, r.logger, "services", "service", id)
}
