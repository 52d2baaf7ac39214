// Package resets issues and redeems single-use password reset secrets. The
// raw secret is returned to the caller once; only its SHA-256 hash is
// persisted.
package resets

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// SecretSize is the number of random bytes in a reset secret.
const SecretSize = 32

// Repositories vends reset token repositories bound to a handle.
type Repositories interface {
	ResetTokens(db dbx.DBTX) resettokens.Repository
}

// Store manages reset secrets on top of a resettokens.Repository.
type Store struct {
	repos Repositories
	ttl   time.Duration
	clock timex.Clock
}

// NewStore returns a Store whose secrets expire after ttl. A nil clock means
// time.Now.
func NewStore(repos Repositories, ttl time.Duration, clock timex.Clock) *Store {
	return &Store{repos: repos, ttl: ttl, clock: clock}
}

// newSecret is a seam for tests.
var newSecret = func() (string, error) {
	return common.MakeRandHexString(SecretSize)
}

// Issue creates a fresh secret for accountID, superseding any earlier one,
// and returns it in raw form.
func (s *Store) Issue(ctx context.Context, db dbx.DBTX, accountID string) (string, error) {
	raw, err := newSecret()
	if err != nil {
		return "", fmt.Errorf("generate reset secret: %w", err)
	}

	token := &models.ResetToken{
		AccountID: accountID,
		TokenHash: cryptox.HashToken(raw),
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}
	if err := s.repos.ResetTokens(db).Replace(ctx, token); err != nil {
		return "", err
	}
	return raw, nil
}

// Consume redeems raw and returns the account it belongs to. Unknown, used
// or expired secrets yield common.ErrNotFound. Run it in the same
// transaction as the password update so a failed update keeps the secret.
func (s *Store) Consume(ctx context.Context, db dbx.DBTX, raw string) (string, error) {
	if raw == "" {
		return "", common.ErrNotFound
	}
	return s.repos.ResetTokens(db).Consume(ctx, cryptox.HashToken(raw), s.clock.Now())
}

// Revoke drops any outstanding secret of accountID.
func (s *Store) Revoke(ctx context.Context, db dbx.DBTX, accountID string) error {
	return s.repos.ResetTokens(db).DeleteByAccount(ctx, accountID)
}
