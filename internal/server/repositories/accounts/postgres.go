package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"
	// raised when an id is not a valid UUID; no such account can exist
	invalidTextRepresentation = "22P02"
)

const columns = `id, name, email, password_hash, photo, phone, bio, user_group, role, approved, email_confirmed, created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*models.Account, error) {
	a := &models.Account{}
	err := s.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Photo, &a.Phone, &a.Bio,
		&a.Group, &a.Role, &a.Approved, &a.EmailConfirmed, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func wrap(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return common.ErrConflict
		case invalidTextRepresentation:
			return common.ErrNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `
		INSERT INTO accounts (id, name, email, password_hash, photo, phone, bio, user_group, role, approved, email_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + columns

	row := r.db.QueryRowContext(ctx, query, a.ID, a.Name, a.Email, a.PasswordHash, a.Photo, a.Phone, a.Bio,
		a.Group, a.Role, a.Approved, a.EmailConfirmed)
	created, err := scanAccount(row)
	if err != nil {
		return nil, wrap(err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + columns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + columns + ` FROM accounts WHERE email = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

func (r *PostgresRepository) ListByApproval(ctx context.Context, approved bool) ([]models.Account, error) {
	query := `SELECT ` + columns + ` FROM accounts WHERE approved = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, approved)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) MarkApproved(ctx context.Context, id string) (*models.Account, error) {
	query := `
		UPDATE accounts SET approved = TRUE, updated_at = now()
		WHERE id = $1 AND approved = FALSE
		RETURNING ` + columns

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

func (r *PostgresRepository) MarkEmailConfirmed(ctx context.Context, id string) (*models.Account, error) {
	query := `
		UPDATE accounts SET email_confirmed = TRUE, updated_at = now()
		WHERE id = $1 AND email_confirmed = FALSE
		RETURNING ` + columns

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Account, error) {
	query := `
		UPDATE accounts SET
			name = COALESCE(NULLIF($2, ''), name),
			phone = COALESCE(NULLIF($3, ''), phone),
			bio = COALESCE(NULLIF($4, ''), bio),
			photo = COALESCE(NULLIF($5, ''), photo),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + columns

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id, u.Name, u.Phone, u.Bio, u.Photo))
	if err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
