// Package admin implements the operator commands: bootstrapping an
// administrator and inspecting accounts that wait for approval.
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
)

const Usage = `Usage: gatekeeper-admin <command> [flags]

Commands:
  create-admin   create an approved, confirmed administrator account
  pending        list accounts waiting for approval
  approved       list approved accounts
  help           show this message

Flags are the server flags (-d, -c, -env ...).`

var ErrUnknownCommand = errors.New("unknown command")

// Accounts is the part of the account service the commands use.
type Accounts interface {
	CreateAdmin(ctx context.Context, in services.RegisterInput) (*models.Account, error)
	ListPending(ctx context.Context) ([]models.Account, error)
	ListApproved(ctx context.Context) ([]models.Account, error)
}

type App struct {
	accounts Accounts
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(accounts Accounts, in io.Reader, out io.Writer) *App {
	return &App{accounts: accounts, reader: bufio.NewReader(in), out: out}
}

// Run executes a single command.
func (a *App) Run(ctx context.Context, command string) error {
	switch command {
	case "create-admin":
		return a.CreateAdmin(ctx)
	case "pending":
		return a.list(ctx, a.accounts.ListPending)
	case "approved":
		return a.list(ctx, a.accounts.ListApproved)
	case "help", "-h", "--help":
		_, err := fmt.Fprintln(a.out, Usage)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

// CreateAdmin prompts for name, e-mail and a twice-entered password.
func (a *App) CreateAdmin(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	again, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	if password != again {
		return errors.New("passwords do not match")
	}

	account, err := a.accounts.CreateAdmin(ctx, services.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("%s", common.Message(err, err.Error()))
	}

	_, err = fmt.Fprintf(a.out, "Administrator %s created (id %s)\n", account.Email, account.ID)
	return err
}

func (a *App) list(ctx context.Context, fetch func(context.Context) ([]models.Account, error)) error {
	accounts, err := fetch(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		_, err := fmt.Fprintln(a.out, "No accounts")
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tGROUP\tCONFIRMED\tCREATED")
	for _, acc := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			acc.ID, acc.Email, acc.Name, acc.Group, acc.EmailConfirmed, acc.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
