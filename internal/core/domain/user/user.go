package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	Role      UserRole   `json:"role" db:"role"`
	CityID    *uuid.UUID `json:"city_id,omitempty" db:"city_id"`
	Phone     string     `json:"phone,omitempty" db:"phone"`
	Bio       string     `json:"bio,omitempty" db:"bio"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePro    UserRole = "pro"
	RoleClient UserRole = "client"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RolePro, RoleClient:
		return true
	default:
		return false
	}
}

// CreateUserRequest represents the request to create a new user profile
type CreateUserRequest struct {
	Email     string     `json:"email" validate:"required,email"`
	FirstName string     `json:"first_name" validate:"required"`
	LastName  string     `json:"last_name" validate:"required"`
	Role      UserRole   `json:"role" validate:"required,oneof=admin pro client"`
	CityID    *uuid.UUID `json:"city_id,omitempty"`
	Phone     string     `json:"phone,omitempty"`
}

// UpdateUserRequest represents the request to update a user profile
type UpdateUserRequest struct {
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	CityID    *uuid.UUID `json:"city_id,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Bio       *string    `json:"bio,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
}

// Apply copies the set fields of the request onto u.
func (r *UpdateUserRequest) Apply(u *User) {
	if r.FirstName != nil {
		u.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		u.LastName = *r.LastName
	}
	if r.CityID != nil {
		u.CityID = r.CityID
	}
	if r.Phone != nil {
		u.Phone = *r.Phone
	}
	if r.Bio != nil {
		u.Bio = *r.Bio
	}
	if r.IsActive != nil {
		u.IsActive = *r.IsActive
	}
}
