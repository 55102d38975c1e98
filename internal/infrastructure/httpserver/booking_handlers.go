package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/internal/core/domain/booking"
	"github.com/avatarctic/services-marketplace/internal/core/domain/user"
	"github.com/avatarctic/services-marketplace/internal/core/ports"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/email"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

// listBookings returns the bookings of ?user_id (default: the caller) with an
// optional ?status filter.
func (s *Server) listBookings(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	target, err := helpers.ParseOptionalUUIDQuery(c, "user_id")
	if err != nil {
		return err
	}
	if target != nil {
		if err := helpers.RequireSelfOrAdmin(c, *target); err != nil {
			return err
		}
		userID = *target
	}
	status := booking.Status(c.QueryParam("status"))
	if status != "" && !status.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	list, err := s.queries.ListBookingsByUser(c.Request().Context(), userID, status)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to list bookings")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"bookings": list, "total": len(list)})
}

func (s *Server) createBooking(c echo.Context) error {
	clientID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req booking.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	svc, err := s.repos.Services.GetByID(ctx, req.ServiceID)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to load service")
	}
	if svc.ProID != req.ProID {
		return echo.NewHTTPError(http.StatusBadRequest, "service is not offered by this pro")
	}

	created, err := s.hooks.CreateBooking(ctx, &booking.Booking{
		ClientID:    clientID,
		ProID:       req.ProID,
		ServiceID:   req.ServiceID,
		Status:      booking.StatusPending,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create booking")
	}

	s.notifyUser(c, created.ProID, "New booking request", email.TemplateBookingCreated, map[string]any{
		"ServiceTitle": svc.Title,
		"ScheduledAt":  created.ScheduledAt.Format(time.RFC1123),
		"BookingID":    created.ID.String(),
	})
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateBooking(c echo.Context) error {
	ctx := c.Request().Context()
	current, err := s.loadOwnBooking(c)
	if err != nil {
		return err
	}
	var req booking.UpdateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Apply(current)

	updated, err := s.hooks.UpdateBooking(ctx, current)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to update booking")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) updateBookingStatus(c echo.Context) error {
	current, err := s.loadOwnBooking(c)
	if err != nil {
		return err
	}
	var req booking.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := s.hooks.UpdateBookingStatus(c.Request().Context(), current.ID, req.Status)
	if err != nil {
		return helpers.MapRepositoryError(err, "failed to update booking status")
	}
	return c.JSON(http.StatusOK, updated)
}

// loadOwnBooking fetches the :id booking and checks the caller takes part in it.
func (s *Server) loadOwnBooking(c echo.Context) (*booking.Booking, error) {
	id, err := helpers.ParseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	b, err := s.repos.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, helpers.MapRepositoryError(err, "failed to load booking")
	}
	if err := requireParticipant(c, b.ClientID, b.ProID); err != nil {
		return nil, err
	}
	return b, nil
}

func requireParticipant(c echo.Context, clientID, proID uuid.UUID) error {
	caller, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	if caller == clientID || caller == proID {
		return nil
	}
	if role, ok := helpers.GetUserRoleRaw(c); ok && role == user.RoleAdmin {
		return nil
	}
	return echo.NewHTTPError(http.StatusForbidden, "not a participant of this booking")
}

// notifyUser queues an email to userID. Failures are logged and never fail the request.
func (s *Server) notifyUser(c echo.Context, userID uuid.UUID, subject, template string, data map[string]any) {
	if s.notifier == nil {
		return
	}
	ctx := c.Request().Context()
	recipient, err := s.queries.GetUser(ctx, userID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("notification skipped: recipient lookup failed")
		}
		return
	}
	err = s.notifier.Enqueue(ctx, ports.Notification{
		To:       recipient.Email,
		Subject:  subject,
		Template: template,
		Data:     data,
	})
	if err != nil && s.logger != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"user_id": userID, "template": template}).Warn("notification not queued")
	}
}
