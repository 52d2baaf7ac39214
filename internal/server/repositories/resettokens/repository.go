// Package resettokens declares the server-side repository contract for
// password reset secrets, stored only as hashes.
package resettokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Repository keeps at most one reset token per account.
type Repository interface {
	// Replace stores t as the account's only reset token, superseding any
	// previous one.
	Replace(ctx context.Context, t *models.ResetToken) error

	// Consume atomically deletes the unexpired token with tokenHash and
	// returns its account id. Missing or expired tokens yield
	// common.ErrNotFound, so two concurrent consumers cannot both win.
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)

	// DeleteByAccount removes the account's token. Deleting a non-existent
	// token is not an error.
	DeleteByAccount(ctx context.Context, accountID string) error
}
