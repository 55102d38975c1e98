package location

import (
	"time"

	"github.com/google/uuid"
)

// City is a location where pros offer services.
type City struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Region    string    `json:"region" db:"region"`
	Country   string    `json:"country" db:"country"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateCityRequest struct {
	Name    string `json:"name" validate:"required"`
	Region  string `json:"region"`
	Country string `json:"country" validate:"required"`
}

type UpdateCityRequest struct {
	Name     *string `json:"name,omitempty"`
	Region   *string `json:"region,omitempty"`
	Country  *string `json:"country,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (r *UpdateCityRequest) Apply(c *City) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Region != nil {
		c.Region = *r.Region
	}
	if r.Country != nil {
		c.Country = *r.Country
	}
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
}
