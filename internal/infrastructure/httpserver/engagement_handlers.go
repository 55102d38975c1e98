package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/services-marketplace/internal/core/domain/dispute"
	"github.com/avatarctic/services-marketplace/internal/core/domain/messaging"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/email"
	"github.com/avatarctic/services-marketplace/internal/infrastructure/httpserver/helpers"
)

// sendMessage runs behind the messaging rate limit.
func (s *Server) sendMessage(c echo.Context) error {
	senderID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req messaging.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RecipientID == senderID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot message yourself")
	}

	msg, err := s.messages.Create(c.Request().Context(), &messaging.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		BookingID:   req.BookingID,
		Body:        req.Body,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to send message")
	}
	return c.JSON(http.StatusCreated, msg)
}

// fileDispute runs behind the dispute rate limit and notifies the other participant.
func (s *Server) fileDispute(c echo.Context) error {
	filerID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req dispute.FileDisputeRequest
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
	if err := requireParticipant(c, b.ClientID, b.ProID); err != nil {
		return err
	}

	filed, err := s.disputes.Create(ctx, &dispute.Dispute{
		BookingID: req.BookingID,
		FiledBy:   filerID,
		Reason:    req.Reason,
		Details:   req.Details,
		Status:    dispute.StatusOpen,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to file dispute")
	}

	counterpart := b.ProID
	if filerID == b.ProID {
		counterpart = b.ClientID
	}
	s.notifyUser(c, counterpart, "A dispute was filed", email.TemplateDisputeFiled, map[string]any{
		"BookingID": b.ID.String(),
		"Reason":    filed.Reason,
	})
	return c.JSON(http.StatusCreated, filed)
}
