// Package accounts declares the Account Store contract and its PostgreSQL
// implementation.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Repository persists accounts. Lookups that find nothing return
// common.ErrNotFound; a duplicate e-mail returns common.ErrConflict.
type Repository interface {
	// Create inserts a. An empty ID is filled with a new UUID. The stored
	// row (with timestamps) is returned.
	Create(ctx context.Context, a *models.Account) (*models.Account, error)

	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// ListByApproval returns accounts with the given approval flag, oldest first.
	ListByApproval(ctx context.Context, approved bool) ([]models.Account, error)

	// MarkApproved flips approved from false to true. It returns
	// common.ErrNotFound when no unapproved account with id exists, so
	// concurrent callers see exactly one success.
	MarkApproved(ctx context.Context, id string) (*models.Account, error)

	// MarkEmailConfirmed flips email_confirmed from false to true, with the
	// same single-winner semantics as MarkApproved.
	MarkEmailConfirmed(ctx context.Context, id string) (*models.Account, error)

	UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Account, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
