package catalog

import (
	"time"

	"github.com/google/uuid"
)

type ServiceCategory struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Service is a listing offered by a pro inside a category.
type Service struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CategoryID  uuid.UUID `json:"category_id" db:"category_id"`
	ProID       uuid.UUID `json:"pro_id" db:"pro_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	PriceCents  int64     `json:"price_cents" db:"price_cents"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug" validate:"required"`
	Description string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r *UpdateCategoryRequest) Apply(c *ServiceCategory) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Slug != nil {
		c.Slug = *r.Slug
	}
	if r.Description != nil {
		c.Description = *r.Description
	}
}

type CreateServiceRequest struct {
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents" validate:"gte=0"`
}

type UpdateServiceRequest struct {
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	PriceCents  *int64     `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

func (r *UpdateServiceRequest) Apply(s *Service) {
	if r.CategoryID != nil {
		s.CategoryID = *r.CategoryID
	}
	if r.Title != nil {
		s.Title = *r.Title
	}
	if r.Description != nil {
		s.Description = *r.Description
	}
	if r.PriceCents != nil {
		s.PriceCents = *r.PriceCents
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}
