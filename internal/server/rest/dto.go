package rest

import "github.com/dmitrijs2005/gatekeeper/internal/server/models"

type accountResponse struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Photo          string `json:"photo"`
	Phone          string `json:"phone"`
	Bio            string `json:"bio"`
	Group          string `json:"group"`
	Role           string `json:"role"`
	Approved       *bool  `json:"approved,omitempty"`
	EmailConfirmed *bool  `json:"emailConfirmed,omitempty"`
	Token          string `json:"token,omitempty"`
	Message        string `json:"message,omitempty"`
}

func newAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Photo: a.Photo,
		Phone: a.Phone,
		Bio:   a.Bio,
		Group: a.Group,
		Role:  a.Role,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type forgotPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}
