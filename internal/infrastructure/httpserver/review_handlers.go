package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/internal/core/domain/review"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

// listReviews filters by ?service_id and/or ?pro_id.
func (s *Server) listReviews(c echo.Context) error {
	serviceID, err := helpers.ParseOptionalUUIDQuery(c, "service_id")
	if err != nil {
		return err
	}
	proID, err := helpers.ParseOptionalUUIDQuery(c, "pro_id")
	if err != nil {
		return err
	}
	list, err := s.queries.ListReviews(c.Request().Context(), review.Filter{ServiceID: serviceID, ProID: proID})
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to list reviews")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reviews": list, "total": len(list)})
}

// createReview records the caller's review of a booking they were the client of.
func (s *Server) createReview(c echo.Context) error {
	clientID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req review.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	b, err := s.repos.Bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load booking")
	}
	if b.ClientID != clientID {
		return echo.NewHTTPError(http.StatusForbidden, "only the booking's client can review it")
	}
	if b.ServiceID != req.ServiceID || b.ProID != req.ProID {
		return echo.NewHTTPError(http.StatusBadRequest, "review does not match booking")
	}

	created, err := s.hooks.CreateReview(ctx, &review.Review{
		BookingID: req.BookingID,
		ServiceID: req.ServiceID,
		ProID:     req.ProID,
		ClientID:  clientID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create review")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) deleteReview(c echo.Context) error {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	current, err := s.repos.Reviews.GetByID(ctx, id)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load review")
	}
	if err := helpers.RequireSelfOrAdmin(c, current.ClientID); err != nil {
		return err
	}
	if err := s.hooks.DeleteReview(ctx, id); err != nil {
		return helpers.MapRepositoryError(err, "failed to delete review")
	}
	return c.NoContent(http.StatusNoContent)
}
