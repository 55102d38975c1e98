package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/internal/core/domain/catalog"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

// Service category handlers

func (s *Server) listServiceCategories(c echo.Context) error {
	categories, err := s.queries.ListServiceCategories(c.Request().Context())
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to list service categories")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"categories": categories, "total": len(categories)})
}

func (s *Server) createServiceCategory(c echo.Context) error {
	var req catalog.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := s.hooks.CreateServiceCategory(c.Request().Context(), &catalog.ServiceCategory{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create service category")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateServiceCategory(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req catalog.UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	current, err := s.repos.Categories.GetByID(ctx, id)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load service category")
	}
	req.Apply(current)

	updated, err := s.hooks.UpdateServiceCategory(ctx, current)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to update service category")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteServiceCategory(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.hooks.DeleteServiceCategory(c.Request().Context(), id); err != nil {
		return helpers.MapRepositoryError(err, "failed to delete service category")
	}
	return c.NoContent(http.StatusNoContent)
}

// Service handlers

func (s *Server) listServices(c echo.Context) error {
	categoryID, err := helpers.ParseOptionalUUIDQuery(c, "category_id")
	if err != nil {
		return err
	}
	list, err := s.queries.ListServices(c.Request().Context(), categoryID)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to list services")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"services": list, "total": len(list)})
}

// createService lists a new service owned by the caller.
func (s *Server) createService(c echo.Context) error {
	proID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req catalog.CreateServiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := s.hooks.CreateService(c.Request().Context(), &catalog.Service{
		CategoryID:  req.CategoryID,
		ProID:       proID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		IsActive:    true,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create service")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateService(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req catalog.UpdateServiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	current, err := s.repos.Services.GetByID(ctx, id)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load service")
	}
	if err := helpers.RequireSelfOrAdmin(c, current.ProID); err != nil {
		return err
	}
	req.Apply(current)

	updated, err := s.hooks.UpdateService(ctx, current)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to update service")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteService(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	current, err := s.repos.Services.GetByID(ctx, id)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load service")
	}
	if err := helpers.RequireSelfOrAdmin(c, current.ProID); err != nil {
		return err
	}
	if err := s.hooks.DeleteService(ctx, id); err != nil {
		return helpers.MapRepositoryError(err, "failed to delete service")
	}
	return c.NoContent(http.StatusNoContent)
}
