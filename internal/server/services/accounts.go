// Package services contains server-side business logic. AccountService
// drives the account lifecycle: registration, administrator approval, e-mail
// confirmation, login gating and the password reset flow.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/notify"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/resets"
)

// Session is an account together with a freshly minted session token.
type Session struct {
	Account *models.Account
	Token   string
}

// AccountService implements the account state machine
// Registered → Approved → Confirmed. Only accounts that are both approved and
// confirmed may log in.
type AccountService struct {
	repomanager repomanager.RepositoryManager
	runner      dbx.Runner
	issuer      *auth.Issuer
	resets      *resets.Store
	composer    *notify.Composer
	notifier    notify.Notifier
	log         logging.Logger

	sessionTTL     time.Duration
	actionTTL      time.Duration
	resetTTL       time.Duration
	passwordParams cryptox.Params
}

// Option customises an AccountService.
type Option func(*AccountService)

// WithPasswordParams overrides the argon2id cost used for new hashes.
func WithPasswordParams(p cryptox.Params) Option {
	return func(s *AccountService) { s.passwordParams = p }
}

// NewAccountService wires the service. notifier should already be bounded
// by notify.WithTimeout.
func NewAccountService(
	m repomanager.RepositoryManager,
	issuer *auth.Issuer,
	resetStore *resets.Store,
	composer *notify.Composer,
	notifier notify.Notifier,
	log logging.Logger,
	cfg *config.Config,
	opts ...Option,
) *AccountService {
	s := &AccountService{
		repomanager:    m,
		runner:         m.Runner(),
		issuer:         issuer,
		resets:         resetStore,
		composer:       composer,
		notifier:       notifier,
		log:            log.With("module", "accounts"),
		sessionTTL:     cfg.SessionTokenValidityDuration,
		actionTTL:      cfg.ActionTokenValidityDuration,
		resetTTL:       cfg.ResetTokenValidityDuration,
		passwordParams: cryptox.DefaultParams,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unapproved, unconfirmed account and asks the
// administrator to approve it. If the approval request cannot be delivered
// the account is not kept, so the user can simply retry. A session token is
// returned even though login stays gated until activation.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, common.NewError(common.ErrValidation, "Please fill in all required fields")
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err, "")
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	group := in.Group
	if group == "" {
		group = common.DefaultGroup
	}

	var created *models.Account
	err = s.runner.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		if _, err := repo.GetByEmail(ctx, in.Email); err == nil {
			return errEmailTaken
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		var err error
		created, err = repo.Create(ctx, &models.Account{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Photo:        common.DefaultPhoto,
			Phone:        common.DefaultPhone,
			Bio:          common.DefaultBio,
			Group:        group,
			Role:         common.RoleUser,
		})
		if err != nil {
			if errors.Is(err, common.ErrConflict) {
				return errEmailTaken
			}
			return err
		}

		approveToken, err := s.issuer.Issue(created.ID, auth.PurposeApprove, s.actionTTL)
		if err != nil {
			return fmt.Errorf("issue approval token: %w", err)
		}
		msg, err := s.composer.ApprovalRequest(recipient(created), approveToken)
		if err != nil {
			return err
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.log.Error(ctx, "approval request not delivered", "account_id", created.ID, "error", err)
			return common.NewError(fmt.Errorf("%w: %w", common.ErrUpstream, err),
				"Registration could not be completed, please try again later")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account registered", "account_id", created.ID, "email", created.Email)
	return s.newSession(created)
}

// Approve marks the account named by an approval token as approved and
// sends the owner a confirmation link. Delivery failures are logged only.
func (s *AccountService) Approve(ctx context.Context, approveToken string) (*models.Account, error) {
	id, err := s.verifyActionToken(approveToken, auth.PurposeApprove)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.runner.Conn())
	account, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, accountLookupError(err)
	}
	if account.Approved {
		return nil, errAlreadyApproved
	}

	account, err = repo.MarkApproved(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errAlreadyApproved
		}
		return nil, err
	}
	s.log.Info(ctx, "account approved", "account_id", id)

	confirmToken, err := s.issuer.Issue(id, auth.PurposeConfirm, s.actionTTL)
	if err != nil {
		s.log.Error(ctx, "confirmation token not issued", "account_id", id, "error", err)
		return account, nil
	}
	msg, err := s.composer.Approved(recipient(account), confirmToken)
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn(ctx, "approval notice not delivered", "account_id", id, "error", err)
	}

	return account, nil
}

// Confirm marks the e-mail of the account named by a confirmation token as
// confirmed and sends a best-effort welcome message.
func (s *AccountService) Confirm(ctx context.Context, confirmToken string) (*models.Account, error) {
	id, err := s.verifyActionToken(confirmToken, auth.PurposeConfirm)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.runner.Conn())
	account, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, accountLookupError(err)
	}
	if account.EmailConfirmed {
		return nil, errAlreadyConfirmed
	}

	account, err = repo.MarkEmailConfirmed(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errAlreadyConfirmed
		}
		return nil, err
	}
	s.log.Info(ctx, "account confirmed", "account_id", id)

	msg, err := s.composer.Welcome(recipient(account))
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn(ctx, "welcome message not delivered", "account_id", id, "error", err)
	}

	return account, nil
}

// Login checks, in order: the account exists, it is approved, its e-mail is
// confirmed, and only then the password. Legacy or outdated hashes are
// upgraded after a successful check.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, invalid(err, "Please add email and password")
	}

	repo := s.repomanager.Accounts(s.runner.Conn())
	account, err := repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, "User not found, please signup")
		}
		return nil, err
	}

	if !account.Approved {
		return nil, common.ErrPendingApproval
	}
	if !account.EmailConfirmed {
		return nil, common.ErrPendingConfirmation
	}
	if !cryptox.VerifyPassword(in.Password, account.PasswordHash) {
		s.log.Info(ctx, "login rejected", "account_id", account.ID)
		return nil, common.ErrInvalidCredentials
	}

	if cryptox.NeedsRehashWithParams(account.PasswordHash, s.passwordParams) {
		if hash, err := s.hashPassword(in.Password); err == nil {
			if err := repo.UpdatePassword(ctx, account.ID, hash); err != nil {
				s.log.Warn(ctx, "password rehash not stored", "account_id", account.ID, "error", err)
			}
		}
	}

	s.log.Info(ctx, "login", "account_id", account.ID)
	return s.newSession(account)
}

// Authenticate resolves a session token to its account.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, errNotAuthorized
	}
	id, err := s.issuer.Verify(token, auth.PurposeSession)
	if err != nil {
		return nil, common.NewError(fmt.Errorf("%w: %w", common.ErrUnauthenticated, err), "Not authorized, please login")
	}

	account, err := s.repomanager.Accounts(s.runner.Conn()).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthenticated, "User not found")
		}
		return nil, err
	}
	return account, nil
}

// IsLoggedIn reports whether token is a valid session of an approved account.
func (s *AccountService) IsLoggedIn(ctx context.Context, token string) bool {
	account, err := s.Authenticate(ctx, token)
	return err == nil && account.Approved
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.repomanager.Accounts(s.runner.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, accountLookupError(err)
	}
	return account, nil
}

// UpdateProfile changes name, phone, bio and photo. The e-mail is immutable.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, invalid(err, "")
	}

	account, err := s.repomanager.Accounts(s.runner.Conn()).UpdateProfile(ctx, id, models.ProfileUpdate{
		Name:  in.Name,
		Phone: in.Phone,
		Bio:   in.Bio,
		Photo: in.Photo,
	})
	if err != nil {
		return nil, accountLookupError(err)
	}
	return account, nil
}

// ChangePassword replaces the password after verifying the current one and
// drops any outstanding reset secret of the account.
func (s *AccountService) ChangePassword(ctx context.Context, id string, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return invalid(err, "Please add old and new password")
	}

	account, err := s.repomanager.Accounts(s.runner.Conn()).GetByID(ctx, id)
	if err != nil {
		return accountLookupError(err)
	}
	if !cryptox.VerifyPassword(in.OldPassword, account.PasswordHash) {
		return common.NewError(common.ErrValidation, "Old password is incorrect")
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return err
	}

	err = s.runner.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).UpdatePassword(ctx, id, hash); err != nil {
			return err
		}
		return s.resets.Revoke(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password changed", "account_id", id)
	return nil
}

// ForgotPassword issues a new reset secret for email, superseding earlier
// ones, and mails a reset link. The raw secret is returned for callers that
// deliver it themselves; it is never stored or logged. A failed delivery is
// logged only.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", common.NewError(common.ErrValidation, "Please add an email")
	}

	conn := s.runner.Conn()
	account, err := s.repomanager.Accounts(conn).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.NewError(common.ErrNotFound, "User does not exist")
		}
		return "", err
	}

	secret, err := s.resets.Issue(ctx, conn, account.ID)
	if err != nil {
		return "", err
	}
	s.log.Info(ctx, "password reset requested", "account_id", account.ID)

	msg, err := s.composer.PasswordReset(recipient(account), secret, s.resetTTL)
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn(ctx, "password reset message not delivered", "account_id", account.ID, "error", err)
	}

	return secret, nil
}

// ResetPassword redeems secret and sets the new password. Redeeming and
// updating happen in one transaction, so the secret survives a failed
// update and cannot be replayed after a successful one.
func (s *AccountService) ResetPassword(ctx context.Context, secret string, in ResetPasswordInput) error {
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return err
	}

	var accountID string
	err = s.runner.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := s.resets.Consume(ctx, tx, secret)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return errInvalidResetToken
			}
			return err
		}
		accountID = id
		return s.repomanager.Accounts(tx).UpdatePassword(ctx, id, hash)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password reset", "account_id", accountID)
	return nil
}

// ListPending returns accounts awaiting approval, oldest first.
func (s *AccountService) ListPending(ctx context.Context) ([]models.Account, error) {
	return s.repomanager.Accounts(s.runner.Conn()).ListByApproval(ctx, false)
}

// ListApproved returns approved accounts, oldest first.
func (s *AccountService) ListApproved(ctx context.Context) ([]models.Account, error) {
	return s.repomanager.Accounts(s.runner.Conn()).ListByApproval(ctx, true)
}

// CreateAdmin bootstraps an active administrator account without the
// approval round trip.
func (s *AccountService) CreateAdmin(ctx context.Context, in RegisterInput) (*models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, invalid(err, "")
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	account, err := s.repomanager.Accounts(s.runner.Conn()).Create(ctx, &models.Account{
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		Photo:          common.DefaultPhoto,
		Phone:          common.DefaultPhone,
		Bio:            common.DefaultBio,
		Group:          common.DefaultGroup,
		Role:           common.RoleAdmin,
		Approved:       true,
		EmailConfirmed: true,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, errEmailTaken
		}
		return nil, err
	}

	s.log.Info(ctx, "administrator created", "account_id", account.ID, "email", account.Email)
	return account, nil
}

var (
	errEmailTaken        = common.NewError(common.ErrConflict, "Email has already been registered")
	errAlreadyApproved   = common.NewError(common.ErrConflict, "User is already approved")
	errAlreadyConfirmed  = common.NewError(common.ErrConflict, "Email is already confirmed")
	errInvalidResetToken = common.NewError(common.ErrNotFound, "Invalid or Expired Token")
	errNotAuthorized     = common.NewError(common.ErrUnauthenticated, "Not authorized, please login")
	errAccountNotFound   = common.NewError(common.ErrNotFound, "User not found")
)

func (s *AccountService) hashPassword(password string) (string, error) {
	return cryptox.HashPasswordWithParams(password, s.passwordParams)
}

func (s *AccountService) newSession(account *models.Account) (*Session, error) {
	token, err := s.issuer.Issue(account.ID, auth.PurposeSession, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &Session{Account: account, Token: token}, nil
}

// verifyActionToken maps every token failure to a Validation error: the
// link is unusable whatever the cause.
func (s *AccountService) verifyActionToken(token string, purpose auth.Purpose) (string, error) {
	id, err := s.issuer.Verify(token, purpose)
	if err != nil {
		return "", common.NewError(fmt.Errorf("%w: %w", common.ErrValidation, err), "Invalid or expired link")
	}
	return id, nil
}

func accountLookupError(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return errAccountNotFound
	}
	return err
}

func recipient(a *models.Account) notify.Recipient {
	return notify.Recipient{Name: a.Name, Email: a.Email}
}
