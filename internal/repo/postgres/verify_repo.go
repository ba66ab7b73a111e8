package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/pkg/database"
	"github.com/jackc/pgx/v5"
)

// VerifyRepo stores one-time verification codes.
type VerifyRepo interface {
	// CreateIfNoneActive inserts code unless the account already holds an
	// unexpired, unconfirmed one. The check and insert share a row lock on the
	// account.
	CreateIfNoneActive(ctx context.Context, code *domain.VerificationCode, now time.Time) (*domain.VerificationCode, error)
	// Confirm marks every live code of the account equal to code as confirmed
	// and advances a new account to code_verified. It returns the updated
	// account or a validation error when no live code matched.
	Confirm(ctx context.Context, accountID int64, code string, now time.Time) (*domain.Account, error)
	// DeleteExpired removes codes that expired or were confirmed before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type VerifyRepoImpl struct{ db database.DB }

func NewVerifyRepo(db database.DB) *VerifyRepoImpl { return &VerifyRepoImpl{db: db} }

func (r *VerifyRepoImpl) CreateIfNoneActive(ctx context.Context, code *domain.VerificationCode, now time.Time) (*domain.VerificationCode, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, code.AccountID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}

	var active bool
	err = tx.QueryRow(ctx, `
SELECT EXISTS (
    SELECT 1 FROM verification_codes
    WHERE account_id = $1
      AND is_confirmed = false
      AND expires_at > $2
)`, code.AccountID, now).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("check active code: %w", err)
	}
	if active {
		return nil, domain.NewValidationError("code", domain.MsgCodeStillUsable)
	}

	out := *code
	err = tx.QueryRow(ctx, `
INSERT INTO verification_codes (account_id, code, verify_type, expires_at, is_confirmed, created_at, updated_at)
VALUES ($1, $2, $3, $4, false, $5, $5)
RETURNING id`,
		code.AccountID, code.Code, string(code.VerifyType), code.ExpiresAt, code.CreatedAt,
	).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &out, nil
}

func (r *VerifyRepoImpl) Confirm(ctx context.Context, accountID int64, code string, now time.Time) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// only unconfirmed, unexpired rows flip, so a concurrent confirm of the
	// same code sees zero rows here
	tag, err := tx.Exec(ctx, `
UPDATE verification_codes
SET is_confirmed = true, updated_at = $3
WHERE account_id = $1
  AND code = $2
  AND is_confirmed = false
  AND expires_at > $3`, accountID, code, now)
	if err != nil {
		return nil, fmt.Errorf("confirm code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.NewValidationError("code", domain.MsgCodeInvalid)
	}

	a, err := scanAccount(tx.QueryRow(ctx, `
UPDATE accounts
SET auth_status = CASE WHEN auth_status = $2 THEN $3 ELSE auth_status END,
    updated_at = now()
WHERE id = $1
RETURNING `+accountColumns,
		accountID, string(domain.StatusNew), string(domain.StatusNew.AfterVerification()),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("advance status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (r *VerifyRepoImpl) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
DELETE FROM verification_codes
WHERE (is_confirmed AND updated_at < $1)
   OR (NOT is_confirmed AND expires_at < $1)`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
