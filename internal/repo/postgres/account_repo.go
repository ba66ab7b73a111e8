package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = `id, username, COALESCE(email, ''), COALESCE(phone_number, ''), password,
       first_name, last_name, photo, auth_type, auth_status, role, created_at, updated_at`

type AccountsRepo interface {
	// Create inserts a normalized account. A username collision returns
	// domain.ErrUsernameTaken; email or phone collisions a *domain.ConflictError.
	Create(ctx context.Context, a domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Account, error)
	// Update writes profile fields. auth_status only ever moves forward.
	Update(ctx context.Context, a domain.Account) (*domain.Account, error)
}

type AccountsRepoImpl struct{ db database.DB }

func NewAccountsRepo(db database.DB) *AccountsRepoImpl { return &AccountsRepoImpl{db: db} }

func (r *AccountsRepoImpl) Create(ctx context.Context, a domain.Account) (*domain.Account, error) {
	const q = `
INSERT INTO accounts (username, email, phone_number, password, first_name, last_name, photo, auth_type, auth_status, role)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + accountColumns
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanAccount(r.db.QueryRow(ctx, q,
		a.Username, a.Email, a.PhoneNumber, a.Password, a.FirstName, a.LastName, a.Photo,
		string(a.AuthType), string(a.AuthStatus), string(a.Role),
	))
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "accounts_username_key" {
				return nil, domain.ErrUsernameTaken
			}
			return nil, &domain.ConflictError{Field: conflictField(constraint)}
		}
		return nil, err
	}
	return out, nil
}

func (r *AccountsRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *AccountsRepoImpl) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, `username = $1`, username)
}

func (r *AccountsRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, `email = $1`, email)
}

func (r *AccountsRepoImpl) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.findOne(ctx, `phone_number = $1`, phone)
}

func (r *AccountsRepoImpl) findOne(ctx context.Context, where string, arg any) (*domain.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.db.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func (r *AccountsRepoImpl) Update(ctx context.Context, a domain.Account) (*domain.Account, error) {
	const q = `
UPDATE accounts
SET username = $2,
    password = $3,
    first_name = $4,
    last_name = $5,
    photo = $6,
    auth_status = CASE
        WHEN array_position(ARRAY['new', 'code_verified', 'done', 'photo_step'], $7::text)
           > array_position(ARRAY['new', 'code_verified', 'done', 'photo_step'], auth_status)
        THEN $7::text ELSE auth_status END,
    updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out, err := scanAccount(r.db.QueryRow(ctx, q,
		a.ID, a.Username, a.Password, a.FirstName, a.LastName, a.Photo, string(a.AuthStatus),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if constraint, ok := uniqueViolation(err); ok {
			return nil, &domain.ConflictError{Field: conflictField(constraint)}
		}
		return nil, err
	}
	return out, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                          domain.Account
		authType, authStatus, role string
	)
	if err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PhoneNumber, &a.Password,
		&a.FirstName, &a.LastName, &a.Photo, &authType, &authStatus, &role, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.AuthType = domain.AuthType(authType)
	if !a.AuthType.Valid() {
		return nil, fmt.Errorf("account %d: unknown auth_type %q", a.ID, authType)
	}
	st, ok := domain.ParseAuthStatus(authStatus)
	if !ok {
		return nil, fmt.Errorf("account %d: unknown auth_status %q", a.ID, authStatus)
	}
	a.AuthStatus = st
	a.Role = domain.Role(role)
	if !a.Role.Valid() {
		return nil, fmt.Errorf("account %d: unknown role %q", a.ID, role)
	}
	return &a, nil
}

func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func conflictField(constraint string) string {
	switch constraint {
	case "accounts_username_key":
		return "username"
	case "accounts_email_key":
		return "email"
	case "accounts_phone_number_key":
		return "phone_number"
	default:
		return "account"
	}
}
