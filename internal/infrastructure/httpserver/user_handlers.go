package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

func (s *Server) createUser(c echo.Context) error {
	var req user.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := s.hooks.CreateUser(c.Request().Context(), &user.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		CityID:    req.CityID,
		Phone:     req.Phone,
		IsActive:  true,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getUser(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	u, err := s.queries.GetUser(c.Request().Context(), id)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to get user")
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) updateUser(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := helpers.RequireSelfOrAdmin(c, id); err != nil {
		return err
	}

	var req user.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	current, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load user")
	}
	req.Apply(current)

	updated, err := s.hooks.UpdateUser(ctx, current)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to update user")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteUser(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := helpers.RequireSelfOrAdmin(c, id); err != nil {
		return err
	}
	if err := s.hooks.DeleteUser(c.Request().Context(), id); err != nil {
		return helpers.MapRepositoryError(err, "failed to delete user")
	}
	return c.NoContent(http.StatusNoContent)
}
