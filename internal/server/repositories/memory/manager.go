// Package memory keeps accounts and reset tokens in process memory. It backs
// the memory:// DSN used for development and tests. Writes made inside
// Runner.WithinTx are undone when the transaction body fails.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

var errNoSQL = errors.New("memory store does not execute SQL")

type store struct {
	mu       sync.Mutex
	clock    timex.Clock
	accounts map[string]models.Account
	byEmail  map[string]string
	order    []string
	resets   map[string]models.ResetToken
}

// Manager is an in-memory RepositoryManager.
type Manager struct {
	s      *store
	runner *Runner
}

// NewManager returns an empty store. A nil clock means time.Now.
func NewManager(clock timex.Clock) *Manager {
	return &Manager{
		s: &store{
			clock:    clock,
			accounts: make(map[string]models.Account),
			byEmail:  make(map[string]string),
			resets:   make(map[string]models.ResetToken),
		},
		runner: &Runner{conn: &handle{}},
	}
}

func (m *Manager) RunMigrations(context.Context) error { return nil }

func (m *Manager) Runner() dbx.Runner { return m.runner }

func (m *Manager) Accounts(db dbx.DBTX) accounts.Repository {
	return &AccountRepository{s: m.s, h: handleOf(db)}
}

func (m *Manager) ResetTokens(db dbx.DBTX) resettokens.Repository {
	return &ResetTokenRepository{s: m.s, h: handleOf(db)}
}

func (m *Manager) Close() error { return nil }

// handle stands in for *sql.DB / *sql.Tx. Inside a transaction it collects
// undo steps.
type handle struct {
	tx   bool
	mu   sync.Mutex
	undo []func()
}

func handleOf(db dbx.DBTX) *handle {
	h, _ := db.(*handle)
	return h
}

func (h *handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (h *handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

// QueryRowContext returns nil; memory repositories never call it.
func (h *handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func (h *handle) record(fn func()) {
	if h == nil || !h.tx {
		return
	}
	h.mu.Lock()
	h.undo = append(h.undo, fn)
	h.mu.Unlock()
}

func (h *handle) rollback() {
	h.mu.Lock()
	steps := h.undo
	h.undo = nil
	h.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

// Runner implements dbx.Runner for the memory store.
type Runner struct {
	conn *handle
}

func (r *Runner) Conn() dbx.DBTX { return r.conn }

// WithinTx runs fn and reverts its writes if it returns an error or panics.
// Other callers may observe the writes before fn returns.
func (r *Runner) WithinTx(ctx context.Context, fn dbx.TxFunc) (err error) {
	h := &handle{tx: true}

	defer func() {
		if p := recover(); p != nil {
			h.rollback()
			panic(p)
		}
		if err != nil {
			h.rollback()
		}
	}()

	err = fn(ctx, h)
	return err
}

func (s *store) now() time.Time {
	return s.clock.Now().UTC()
}
