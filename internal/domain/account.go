package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/utils"
	"github.com/google/uuid"
)

type AuthType string

const (
	ViaEmail AuthType = "via_email"
	ViaPhone AuthType = "via_phone"
)

func (t AuthType) Valid() bool {
	return t == ViaEmail || t == ViaPhone
}

type AuthStatus string

const (
	StatusNew          AuthStatus = "new"
	StatusCodeVerified AuthStatus = "code_verified"
	StatusDone         AuthStatus = "done"
	StatusPhotoStep    AuthStatus = "photo_step"
)

var statusRank = map[AuthStatus]int{
	StatusNew:          0,
	StatusCodeVerified: 1,
	StatusDone:         2,
	StatusPhotoStep:    3,
}

func ParseAuthStatus(s string) (AuthStatus, bool) {
	st := AuthStatus(s)
	_, ok := statusRank[st]
	return st, ok
}

// advance moves s to next only when s equals from. Statuses never move
// backwards.
func (s AuthStatus) advance(from, next AuthStatus) AuthStatus {
	if s == from && statusRank[next] > statusRank[s] {
		return next
	}
	return s
}

// AfterVerification is the status an account holds once a code is confirmed.
func (s AuthStatus) AfterVerification() AuthStatus {
	return s.advance(StatusNew, StatusCodeVerified)
}

// AfterProfileUpdate is the status after the name/credentials step.
func (s AuthStatus) AfterProfileUpdate() AuthStatus {
	return s.advance(StatusCodeVerified, StatusDone)
}

// AfterPhotoUpload is the status after a photo has been stored.
func (s AuthStatus) AfterPhotoUpload() AuthStatus {
	return s.advance(StatusDone, StatusPhotoStep)
}

type Role string

const (
	RoleOrdinaryUser Role = "ordinary_user"
	RoleManager      Role = "manager"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOrdinaryUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type Account struct {
	ID          int64
	Username    string
	Email       string
	PhoneNumber string
	// Password holds the argon2id (or legacy bcrypt) hash once normalized.
	Password   string
	FirstName  string
	LastName   string
	Photo      string
	AuthType   AuthType
	AuthStatus AuthStatus
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AccountInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	FullName    string     `json:"full_name"`
	Photo       string     `json:"photo,omitempty"`
	AuthType    AuthType   `json:"auth_type"`
	AuthStatus  AuthStatus `json:"auth_status"`
	Role        Role       `json:"role"`
}

func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Destination is where verification codes for this account are delivered.
func (a *Account) Destination() (string, error) {
	switch a.AuthType {
	case ViaEmail:
		return a.Email, nil
	case ViaPhone:
		return a.PhoneNumber, nil
	default:
		return "", NewValidationError("auth_type", MsgInvalidContact)
	}
}

// ToAccountInfo converts Account to AccountInfo (without the password hash)
func (a *Account) ToAccountInfo() *AccountInfo {
	return &AccountInfo{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		FullName:    a.FullName(),
		Photo:       a.Photo,
		AuthType:    a.AuthType,
		AuthStatus:  a.AuthStatus,
		Role:        a.Role,
	}
}

// NewAccountFromContact builds an unsaved account from the single signup
// field, which is either an email address or a phone number.
func NewAccountFromContact(input string) (Account, error) {
	input = strings.TrimSpace(input)
	switch {
	case utils.IsValidEmail(input):
		return Account{Email: input, AuthType: ViaEmail}, nil
	case utils.IsValidPhone(input):
		return Account{PhoneNumber: input, AuthType: ViaPhone}, nil
	default:
		return Account{}, NewValidationError("email_phone_number", MsgInvalidContact)
	}
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	// IsHashed reports whether s already carries a hash marker.
	IsHashed(s string) bool
}

type NormalizeDeps struct {
	Hasher PasswordHasher
	// Suffix returns a short random token for generated usernames and
	// placeholder passwords. Defaults to RandomSuffix.
	Suffix func() string
}

// NormalizeAccount applies the field rules every account write goes
// through. It does not touch storage.
func NormalizeAccount(a Account, deps NormalizeDeps) (Account, error) {
	suffix := deps.Suffix
	if suffix == nil {
		suffix = RandomSuffix
	}

	a.Email = utils.NormalizeEmail(a.Email)
	a.PhoneNumber = utils.NormalizePhone(a.PhoneNumber)
	a.Username = strings.TrimSpace(a.Username)
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)

	if a.Username == "" {
		a.Username = "user-" + suffix()
	}
	if a.Password == "" {
		a.Password = "password-" + suffix()
	}
	if !deps.Hasher.IsHashed(a.Password) {
		hash, err := deps.Hasher.Hash(a.Password)
		if err != nil {
			return a, fmt.Errorf("hash password: %w", err)
		}
		a.Password = hash
	}

	if a.Role == "" {
		a.Role = RoleOrdinaryUser
	}
	if a.AuthStatus == "" {
		a.AuthStatus = StatusNew
	}
	return a, nil
}

// RandomSuffix returns the last group of a random UUID (12 hex chars).
func RandomSuffix() string {
	id := uuid.NewString()
	return id[strings.LastIndex(id, "-")+1:]
}

// ProfileUpdate is the body of the change-user endpoint. Nil fields are left
// untouched.
type ProfileUpdate struct {
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	Username        *string `json:"username,omitempty"`
	Password        *string `json:"password,omitempty"`
	ConfirmPassword *string `json:"confirm_password,omitempty"`
}

const minPasswordLength = 8

func (p *ProfileUpdate) Normalize() {
	for _, f := range []*string{p.FirstName, p.LastName, p.Username} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// Validate checks the update. When full is set (PUT) both names are
// required.
func (p *ProfileUpdate) Validate(full bool) error {
	if full {
		if p.FirstName == nil || *p.FirstName == "" {
			return NewValidationError("first_name", "first name is required")
		}
		if p.LastName == nil || *p.LastName == "" {
			return NewValidationError("last_name", "last name is required")
		}
	}
	if p.FirstName == nil && p.LastName == nil && p.Username == nil && p.Password == nil {
		return NewValidationError("", "nothing to update")
	}
	if p.Username != nil {
		u := *p.Username
		if utils.IsValidEmail(u) || utils.IsValidPhone(u) {
			return NewValidationError("username", "username must not be an email or phone number")
		}
		if !utils.IsValidUsername(u) {
			return NewValidationError("username", "username must be 3-150 letters, digits or ._@+-")
		}
	}
	if p.Password != nil {
		if len(*p.Password) < minPasswordLength {
			return NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		}
		if p.ConfirmPassword == nil || *p.ConfirmPassword != *p.Password {
			return NewValidationError("confirm_password", "passwords do not match")
		}
	}
	return nil
}

// Apply copies the set fields onto a. The password is copied as given, so
// callers hash it first.
func (p *ProfileUpdate) Apply(a Account) Account {
	if p.FirstName != nil {
		a.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		a.LastName = *p.LastName
	}
	if p.Username != nil {
		a.Username = *p.Username
	}
	if p.Password != nil {
		a.Password = *p.Password
	}
	return a
}

// MaxPhotoSize bounds uploaded photos.
const MaxPhotoSize = 5 << 20

var allowedPhotoExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"heic": true,
	"heif": true,
}

// ValidatePhotoName returns the photo's extension if it is on the allow-list.
func ValidatePhotoName(filename string) (string, error) {
	ext := utils.FileExtension(filename)
	if !allowedPhotoExtensions[ext] {
		return "", NewValidationError("photo", "allowed file types: jpg, jpeg, png, heic, heif")
	}
	return ext, nil
}
