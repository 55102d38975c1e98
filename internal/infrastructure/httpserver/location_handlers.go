package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/internal/core/domain/location"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

// listCities returns every active city, or only the one named by ?city=.
func (s *Server) listCities(c echo.Context) error {
	cities, err := s.queries.ListCities(c.Request().Context(), c.QueryParam("city"))
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to list cities")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"cities": cities, "total": len(cities)})
}

func (s *Server) createCity(c echo.Context) error {
	var req location.CreateCityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := s.hooks.CreateCity(c.Request().Context(), &location.City{
		Name:     req.Name,
		Region:   req.Region,
		Country:  req.Country,
		IsActive: true,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create city")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateCity(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req location.UpdateCityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	current, err := s.repos.Cities.GetByID(ctx, id)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load city")
	}
	req.Apply(current)

	updated, err := s.hooks.UpdateCity(ctx, current)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to update city")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteCity(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.hooks.DeleteCity(c.Request().Context(), id); err != nil {
		return helpers.MapRepositoryError(err, "failed to delete city")
	}
	return c.NoContent(http.StatusNoContent)
}
