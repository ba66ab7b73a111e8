package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountCols = []string{
	"id", "username", "email", "phone_number", "password", "first_name", "last_name",
	"photo", "auth_type", "auth_status", "role", "created_at", "updated_at",
}

func accountRows(a domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountCols).AddRow(
		a.ID, a.Username, a.Email, a.PhoneNumber, a.Password, a.FirstName, a.LastName,
		a.Photo, string(a.AuthType), string(a.AuthStatus), string(a.Role), a.CreatedAt, a.UpdatedAt,
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleAccount() domain.Account {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.Account{
		ID:         1,
		Username:   "user-abc",
		Email:      "a@b.com",
		Password:   "$argon2id$hash",
		AuthType:   domain.ViaEmail,
		AuthStatus: domain.StatusNew,
		Role:       domain.RoleOrdinaryUser,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

func TestAccountsRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewAccountsRepo(mock)
	in := sampleAccount()

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs(in.Username, in.Email, "", in.Password, "", "", "", "via_email", "new", "ordinary_user").
		WillReturnRows(accountRows(in))

	out, err := repo.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountsRepo_CreateUniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		check      func(t *testing.T, err error)
	}{
		{"accounts_username_key", func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrUsernameTaken)
		}},
		{"accounts_email_key", func(t *testing.T, err error) {
			var ce *domain.ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "email", ce.Field)
			assert.ErrorIs(t, err, domain.ErrConflict)
		}},
		{"accounts_phone_number_key", func(t *testing.T, err error) {
			var ce *domain.ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "phone_number", ce.Field)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectQuery("INSERT INTO accounts").
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := NewAccountsRepo(mock).Create(context.Background(), sampleAccount())
			tt.check(t, err)
		})
	}
}

func TestAccountsRepo_FindNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM accounts WHERE email").
		WithArgs("nobody@b.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewAccountsRepo(mock).FindByEmail(context.Background(), "nobody@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountsRepo_FindBy(t *testing.T) {
	mock := newMock(t)
	repo := NewAccountsRepo(mock)
	a := sampleAccount()

	mock.ExpectQuery("FROM accounts WHERE id").WithArgs(int64(1)).WillReturnRows(accountRows(a))
	mock.ExpectQuery("FROM accounts WHERE username").WithArgs("user-abc").WillReturnRows(accountRows(a))
	mock.ExpectQuery("FROM accounts WHERE phone_number").WithArgs("+998901234567").WillReturnRows(accountRows(a))

	ctx := context.Background()
	got, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.ViaEmail, got.AuthType)

	_, err = repo.FindByUsername(ctx, "user-abc")
	require.NoError(t, err)
	_, err = repo.FindByPhone(ctx, "+998901234567")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountsRepo_RejectsUnknownEnumValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *domain.Account)
		want   string
	}{
		{"auth_type", func(a *domain.Account) { a.AuthType = "via_fax" }, "auth_type"},
		{"auth_status", func(a *domain.Account) { a.AuthStatus = "archived" }, "auth_status"},
		{"role", func(a *domain.Account) { a.Role = "root" }, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			a := sampleAccount()
			tt.mutate(&a)
			mock.ExpectQuery("FROM accounts WHERE id").WithArgs(int64(1)).WillReturnRows(accountRows(a))

			got, err := NewAccountsRepo(mock).FindByID(context.Background(), 1)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Contains(t, err.Error(), tt.want)
			assert.NotErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestAccountsRepo_Update(t *testing.T) {
	mock := newMock(t)
	a := sampleAccount()
	a.FirstName, a.LastName, a.AuthStatus = "Ann", "Lee", domain.StatusDone

	mock.ExpectQuery("UPDATE accounts").
		WithArgs(a.ID, a.Username, a.Password, "Ann", "Lee", "", "done").
		WillReturnRows(accountRows(a))

	out, err := NewAccountsRepo(mock).Update(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", out.FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountsRepo_UpdateUsernameConflict(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("UPDATE accounts").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"})

	_, err := NewAccountsRepo(mock).Update(context.Background(), sampleAccount())
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "username", ce.Field)
}

func TestVerifyRepo_CreateIfNoneActive(t *testing.T) {
	mock := newMock(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	code, err := domain.NewVerificationCode(1, domain.ViaEmail, "0427", now)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(1), now).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO verification_codes").
		WithArgs(int64(1), "0427", "via_email", now.Add(6*time.Minute), now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	out, err := NewVerifyRepo(mock).CreateIfNoneActive(context.Background(), code, now)
	require.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)
	assert.Equal(t, "0427", out.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRepo_CreateIfNoneActive_StillUsable(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	code, err := domain.NewVerificationCode(1, domain.ViaPhone, "1111", now)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err = NewVerifyRepo(mock).CreateIfNoneActive(context.Background(), code, now)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.MsgCodeStillUsable, ve.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRepo_CreateIfNoneActive_UnknownAccount(t *testing.T) {
	mock := newMock(t)
	code, err := domain.NewVerificationCode(5, domain.ViaPhone, "1111", time.Now())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err = NewVerifyRepo(mock).CreateIfNoneActive(context.Background(), code, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyRepo_Confirm(t *testing.T) {
	mock := newMock(t)
	now := time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC)
	a := sampleAccount()
	a.AuthStatus = domain.StatusCodeVerified

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE verification_codes").WithArgs(int64(1), "0427", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectQuery("UPDATE accounts").WithArgs(int64(1), "new", "code_verified").
		WillReturnRows(accountRows(a))
	mock.ExpectCommit()

	out, err := NewVerifyRepo(mock).Confirm(context.Background(), 1, "0427", now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCodeVerified, out.AuthStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRepo_Confirm_NoLiveCode(t *testing.T) {
	mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE verification_codes").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := NewVerifyRepo(mock).Confirm(context.Background(), 1, "9999", now)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.MsgCodeInvalid, ve.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRepo_Confirm_DBError(t *testing.T) {
	mock := newMock(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE verification_codes").WillReturnError(boom)
	mock.ExpectRollback()

	_, err := NewVerifyRepo(mock).Confirm(context.Background(), 1, "9999", time.Now())
	assert.ErrorIs(t, err, boom)
	assert.False(t, domain.IsValidation(err))
}

func TestVerifyRepo_DeleteExpired(t *testing.T) {
	mock := newMock(t)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM verification_codes").WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := NewVerifyRepo(mock).DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
