package rest

import (
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

const accountKey = "account"

// protect resolves the session cookie to an account and stores it in
// c.Locals for the handlers that follow.
func (s *HTTPServer) protect(c *fiber.Ctx) error {
	account, err := s.accounts.Authenticate(c.UserContext(), s.cookies.Token(c))
	if err != nil {
		return err
	}
	c.Locals(accountKey, account)
	return c.Next()
}

// adminOnly must run after protect.
func (s *HTTPServer) adminOnly(c *fiber.Ctx) error {
	account := currentAccount(c)
	if account == nil || account.Role != common.RoleAdmin {
		return common.NewError(common.ErrForbidden, "Not authorized as an admin")
	}
	return c.Next()
}

func currentAccount(c *fiber.Ctx) *models.Account {
	a, _ := c.Locals(accountKey).(*models.Account)
	return a
}

// requestLogger logs one line per request. Errors are rendered here so the
// logged status is the one sent.
func (s *HTTPServer) requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Info(c.UserContext(), "request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start).String(),
	)
	return nil
}
