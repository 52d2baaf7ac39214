package rest

import (
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

var errBadBody = common.NewError(common.ErrValidation, "Invalid request body")

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return errBadBody
	}
	return nil
}

func (s *HTTPServer) register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	session, err := s.accounts.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	s.cookies.Attach(c, session.Token)

	resp := newAccountResponse(session.Account)
	resp.Token = session.Token
	resp.Message = "Registration successful. Please wait for approval"
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (s *HTTPServer) login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	session, err := s.accounts.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	s.cookies.Attach(c, session.Token)

	resp := newAccountResponse(session.Account)
	resp.Token = session.Token
	return c.JSON(resp)
}

func (s *HTTPServer) logout(c *fiber.Ctx) error {
	s.cookies.Clear(c)
	return c.JSON(messageResponse{Message: "Successfully Logged Out"})
}

func (s *HTTPServer) loggedIn(c *fiber.Ctx) error {
	return c.JSON(s.accounts.IsLoggedIn(c.UserContext(), s.cookies.Token(c)))
}

func (s *HTTPServer) getUser(c *fiber.Ctx) error {
	account, err := s.accounts.GetAccount(c.UserContext(), currentAccount(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(newAccountResponse(account))
}

func (s *HTTPServer) adminGetUser(c *fiber.Ctx) error {
	account, err := s.accounts.GetAccount(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newAccountResponse(account))
}

func (s *HTTPServer) updateUser(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	account, err := s.accounts.UpdateProfile(c.UserContext(), currentAccount(c).ID, in)
	if err != nil {
		return err
	}
	return c.JSON(newAccountResponse(account))
}

func (s *HTTPServer) changePassword(c *fiber.Ctx) error {
	var in services.ChangePasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	if err := s.accounts.ChangePassword(c.UserContext(), currentAccount(c).ID, in); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Password change successful"})
}

// forgotPassword never returns the secret; it only travels by e-mail.
func (s *HTTPServer) forgotPassword(c *fiber.Ctx) error {
	var in forgotPasswordRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}

	if _, err := s.accounts.ForgotPassword(c.UserContext(), in.Email); err != nil {
		return err
	}
	return c.JSON(forgotPasswordResponse{Success: true, Message: "Reset Email Sent"})
}

func (s *HTTPServer) resetPassword(c *fiber.Ctx) error {
	var in services.ResetPasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	if err := s.accounts.ResetPassword(c.UserContext(), c.Params("resetToken"), in); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Password Reset Successful, Please Login"})
}

func (s *HTTPServer) completeRegistration(c *fiber.Ctx) error {
	account, err := s.accounts.Confirm(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}

	resp := newAccountResponse(account)
	resp.EmailConfirmed = &account.EmailConfirmed
	resp.Message = "Registration complete, you can now login"
	return c.JSON(resp)
}

func (s *HTTPServer) approve(c *fiber.Ctx) error {
	account, err := s.accounts.Approve(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}

	resp := newAccountResponse(account)
	resp.Approved = &account.Approved
	resp.Message = "User approved"
	return c.JSON(resp)
}

func (s *HTTPServer) pendingUsers(c *fiber.Ctx) error {
	accounts, err := s.accounts.ListPending(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(nonNil(accounts))
}

func (s *HTTPServer) approvedUsers(c *fiber.Ctx) error {
	accounts, err := s.accounts.ListApproved(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(nonNil(accounts))
}

func nonNil(a []models.Account) []models.Account {
	if a == nil {
		return []models.Account{}
	}
	return a
}
