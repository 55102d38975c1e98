package auth

import (
	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the access-token claims issued by the identity service.
// Subject carries the user ID.
type Claims struct {
	Email string        `json:"email,omitempty"`
	Role  user.UserRole `json:"role,omitempty"`

	jwt.RegisteredClaims
}

// SubjectID parses the subject claim as a user ID.
func (c *Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
