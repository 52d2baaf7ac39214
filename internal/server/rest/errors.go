package rest

import (
	"errors"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/gofiber/fiber/v2"
)

// statusOf maps an error to its HTTP status. Pending approval or
// confirmation is reported as 401 even though its kind is Forbidden.
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, common.ErrPendingApproval), errors.Is(err, common.ErrPendingConfirmation):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrConflict):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler is the only place that turns errors into responses. Messages
// of unclassified errors are never sent to the client.
func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	status := statusOf(err)

	message := common.Message(err, "Internal server error")
	var fe *fiber.Error
	if errors.As(err, &fe) {
		message = fe.Message
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(messageResponse{Message: message})
}
