package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/resettokens"
)

// RepositoryManager vends repositories bound to a handle obtained from
// Runner, so the same repositories work inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Runner() dbx.Runner
	Accounts(db dbx.DBTX) accounts.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
	Close() error
}
