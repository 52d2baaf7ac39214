package services

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Group    string `json:"group"`
}

// Validate checks presence and shape of the fields. Password strength is
// checked separately by cryptox.
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Group, validation.RuneLength(0, 100)),
	)
}

// LoginInput is the payload of a login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ProfileInput carries the owner-editable profile fields. Empty fields keep
// their stored value.
type ProfileInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Bio   string `json:"bio"`
	Photo string `json:"photo"`
}

func (r ProfileInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.RuneLength(0, 200)),
		validation.Field(&r.Phone, validation.RuneLength(0, 50)),
		validation.Field(&r.Bio, validation.RuneLength(0, common.MaxBioLength)),
		validation.Field(&r.Photo, is.URL),
	)
}

// ChangePasswordInput is the payload of an authenticated password change.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	Password    string `json:"password"`
}

func (r ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ResetPasswordInput is the payload of a password reset.
type ResetPasswordInput struct {
	Password string `json:"password"`
}

// invalid turns an ozzo-validation error into a Validation error carrying
// the given message, or the rule messages when message is empty.
func invalid(err error, message string) error {
	if message != "" {
		return common.NewError(common.ErrValidation, message)
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return common.NewError(common.ErrValidation, strings.TrimSuffix(verrs.Error(), "."))
	}
	return common.NewError(common.ErrValidation, err.Error())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
