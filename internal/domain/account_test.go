package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHasher struct {
	calls int
}

func (h *fakeHasher) Hash(p string) (string, error) {
	h.calls++
	return "$fake$" + p, nil
}

func (h *fakeHasher) IsHashed(s string) bool {
	return strings.HasPrefix(s, "$fake$")
}

type failingHasher struct{ fakeHasher }

func (failingHasher) Hash(string) (string, error) { return "", errors.New("boom") }

func fixedSuffix() string { return "abc123def456" }

func TestNormalizeAccount_FillsDefaults(t *testing.T) {
	h := &fakeHasher{}
	a, err := NormalizeAccount(Account{Email: "  Foo@Example.COM "}, NormalizeDeps{Hasher: h, Suffix: fixedSuffix})
	require.NoError(t, err)

	assert.Equal(t, "foo@example.com", a.Email)
	assert.Equal(t, "user-abc123def456", a.Username)
	assert.Equal(t, "$fake$password-abc123def456", a.Password)
	assert.Equal(t, RoleOrdinaryUser, a.Role)
	assert.Equal(t, StatusNew, a.AuthStatus)
	assert.Equal(t, 1, h.calls)
}

func TestNormalizeAccount_Idempotent(t *testing.T) {
	h := &fakeHasher{}
	deps := NormalizeDeps{Hasher: h, Suffix: fixedSuffix}

	once, err := NormalizeAccount(Account{PhoneNumber: "+998 (90) 123-45-67", Password: "secret-pass"}, deps)
	require.NoError(t, err)
	twice, err := NormalizeAccount(once, deps)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, "+998901234567", twice.PhoneNumber)
	assert.Equal(t, 1, h.calls, "an already hashed password must not be hashed again")
}

func TestNormalizeAccount_KeepsExistingValues(t *testing.T) {
	a, err := NormalizeAccount(Account{
		Username:   " alice ",
		Role:       RoleAdmin,
		AuthStatus: StatusDone,
		Password:   "$fake$x",
	}, NormalizeDeps{Hasher: &fakeHasher{}, Suffix: fixedSuffix})
	require.NoError(t, err)

	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, RoleAdmin, a.Role)
	assert.Equal(t, StatusDone, a.AuthStatus)
	assert.Equal(t, "$fake$x", a.Password)
}

func TestNormalizeAccount_HashError(t *testing.T) {
	_, err := NormalizeAccount(Account{Password: "plain"}, NormalizeDeps{Hasher: &failingHasher{}, Suffix: fixedSuffix})
	assert.Error(t, err)
}

func TestRandomSuffix(t *testing.T) {
	s := RandomSuffix()
	assert.Len(t, s, 12)
	assert.NotContains(t, s, "-")
	assert.NotEqual(t, s, RandomSuffix())
}

func TestNewAccountFromContact(t *testing.T) {
	a, err := NewAccountFromContact("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, ViaEmail, a.AuthType)
	assert.Equal(t, "bob@example.com", a.Email)

	a, err = NewAccountFromContact("+998901234567")
	require.NoError(t, err)
	assert.Equal(t, ViaPhone, a.AuthType)
	assert.Equal(t, "+998901234567", a.PhoneNumber)

	_, err = NewAccountFromContact("not a contact")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgInvalidContact, ve.Message)
}

func TestAuthStatus_Transitions(t *testing.T) {
	assert.Equal(t, StatusCodeVerified, StatusNew.AfterVerification())
	assert.Equal(t, StatusDone, StatusDone.AfterVerification())
	assert.Equal(t, StatusPhotoStep, StatusPhotoStep.AfterVerification())

	assert.Equal(t, StatusNew, StatusNew.AfterProfileUpdate())
	assert.Equal(t, StatusDone, StatusCodeVerified.AfterProfileUpdate())
	assert.Equal(t, StatusPhotoStep, StatusPhotoStep.AfterProfileUpdate())

	assert.Equal(t, StatusCodeVerified, StatusCodeVerified.AfterPhotoUpload())
	assert.Equal(t, StatusPhotoStep, StatusDone.AfterPhotoUpload())
}

func TestParseAuthStatus(t *testing.T) {
	st, ok := ParseAuthStatus("done")
	assert.True(t, ok)
	assert.Equal(t, StatusDone, st)

	_, ok = ParseAuthStatus("half_done")
	assert.False(t, ok)
}

func TestAccount_DestinationAndInfo(t *testing.T) {
	a := Account{ID: 7, Email: "x@y.io", PhoneNumber: "+123456789", AuthType: ViaPhone, FirstName: "Ann", LastName: "Lee", Password: "hash"}

	dest, err := a.Destination()
	require.NoError(t, err)
	assert.Equal(t, "+123456789", dest)

	info := a.ToAccountInfo()
	assert.Equal(t, "Ann Lee", info.FullName)
	assert.Equal(t, int64(7), info.ID)

	a.AuthType = ""
	_, err = a.Destination()
	assert.True(t, IsValidation(err))
}

func ptr(s string) *string { return &s }

func TestProfileUpdate_Validate(t *testing.T) {
	tests := []struct {
		name  string
		upd   ProfileUpdate
		full  bool
		field string
	}{
		{"put without names", ProfileUpdate{Username: ptr("alice")}, true, "first_name"},
		{"put without last name", ProfileUpdate{FirstName: ptr("A")}, true, "last_name"},
		{"empty patch", ProfileUpdate{}, false, ""},
		{"bad username", ProfileUpdate{Username: ptr("a b")}, false, "username"},
		{"email as username", ProfileUpdate{Username: ptr("victim@example.com")}, false, "username"},
		{"phone as username", ProfileUpdate{Username: ptr("+998901234567")}, false, "username"},
		{"short password", ProfileUpdate{Password: ptr("short"), ConfirmPassword: ptr("short")}, false, "password"},
		{"mismatch", ProfileUpdate{Password: ptr("longenough"), ConfirmPassword: ptr("different1")}, false, "confirm_password"},
		{"missing confirm", ProfileUpdate{Password: ptr("longenough")}, false, "confirm_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.upd.Validate(tt.full)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	ok := ProfileUpdate{FirstName: ptr("Ann"), LastName: ptr("Lee"), Password: ptr("longenough"), ConfirmPassword: ptr("longenough")}
	assert.NoError(t, ok.Validate(true))
}

func TestProfileUpdate_NormalizeAndApply(t *testing.T) {
	upd := ProfileUpdate{FirstName: ptr("  Ann "), Username: ptr(" ann_lee ")}
	upd.Normalize()

	a := upd.Apply(Account{FirstName: "Old", LastName: "Keep", Username: "old"})
	assert.Equal(t, "Ann", a.FirstName)
	assert.Equal(t, "Keep", a.LastName)
	assert.Equal(t, "ann_lee", a.Username)
}

func TestValidatePhotoName(t *testing.T) {
	ext, err := ValidatePhotoName("me.HEIC")
	require.NoError(t, err)
	assert.Equal(t, "heic", ext)

	_, err = ValidatePhotoName("me.gif")
	assert.True(t, IsValidation(err))

	_, err = ValidatePhotoName("noext")
	assert.True(t, IsValidation(err))
}

func TestConflictError(t *testing.T) {
	err := error(&ConflictError{Field: "email"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "email already exists", err.Error())
}
