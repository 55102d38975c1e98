package helpers

import (
	"errors"
	"net/http"

	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ParseIDParam parses the named path parameter as a UUID.
func ParseIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// ParseOptionalUUIDQuery returns nil when the query parameter is absent.
func ParseOptionalUUIDQuery(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

// MapRepositoryError turns a data-store error into an HTTP error. msg is used for
// anything that is not a missing entity.
func MapRepositoryError(err error, msg string) error {
	if errors.Is(err, ports.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

// RequireSelfOrAdmin rejects requests acting on another user's resources unless
// the caller is an admin.
func RequireSelfOrAdmin(c echo.Context, target uuid.UUID) error {
	id, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	if id == target {
		return nil
	}
	if role, ok := GetUserRoleRaw(c); ok && role == user.RoleAdmin {
		return nil
	}
	return echo.NewHTTPError(http.StatusForbidden, "forbidden")
}
