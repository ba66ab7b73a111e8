package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/internal/repo/postgres"
	"github.com/diagnosis/luxsuv-accounts/internal/utils"
	"github.com/diagnosis/luxsuv-accounts/pkg/events"
	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
)

// usernameAttempts caps inserts when a generated username collides.
const usernameAttempts = 5

type PasswordHasher interface {
	domain.PasswordHasher
	Compare(password, hash string) (bool, error)
}

type PhotoStore interface {
	Put(ctx context.Context, accountID int64, ext string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, accountID int64, key string) error
	URL(ctx context.Context, key string) (string, error)
}

type AccountService struct {
	accounts postgres.AccountsRepo
	hasher   PasswordHasher
	photos   PhotoStore
	events   events.Publisher
	rng      domain.RandomSource
	suffix   func() string
	now      func() time.Time
}

func NewAccountService(
	accounts postgres.AccountsRepo,
	hasher PasswordHasher,
	photos PhotoStore,
	publisher events.Publisher,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		hasher:   hasher,
		photos:   photos,
		events:   publisher,
		rng:      domain.CryptoSource{},
		suffix:   domain.RandomSuffix,
		now:      time.Now,
	}
}

// Signup creates an account from a single email-or-phone field.
func (s *AccountService) Signup(ctx context.Context, contact string) (*domain.Account, error) {
	acc, err := domain.NewAccountFromContact(contact)
	if err != nil {
		return nil, err
	}

	created, err := s.create(ctx, acc)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Account registered", "account_id", created.ID, "auth_type", created.AuthType)
	s.publish(ctx, events.AccountRegistered, events.AccountRegisteredEvent{
		AccountID:  created.ID,
		Username:   created.Username,
		AuthType:   string(created.AuthType),
		OccurredAt: s.now(),
	})
	return created, nil
}

func (s *AccountService) create(ctx context.Context, acc domain.Account) (*domain.Account, error) {
	generated := strings.TrimSpace(acc.Username) == ""

	acc, err := s.normalize(acc)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		created, err := s.accounts.Create(ctx, acc)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrUsernameTaken) {
			return nil, fmt.Errorf("create account: %w", err)
		}
		if !generated || attempt >= usernameAttempts {
			return nil, &domain.ConflictError{Field: "username"}
		}
		acc.Username += strconv.Itoa(s.rng.IntN(10))
	}
}

// Authenticate resolves userinput as email, phone or username and checks the
// password.
func (s *AccountService) Authenticate(ctx context.Context, userinput, password string) (*domain.Account, error) {
	userinput = strings.TrimSpace(userinput)
	if userinput == "" || password == "" {
		return nil, domain.NewValidationError("", "userinput and password are required")
	}

	var (
		acc *domain.Account
		err error
	)
	switch {
	case utils.IsValidEmail(userinput):
		acc, err = s.accounts.FindByEmail(ctx, utils.NormalizeEmail(userinput))
	case utils.IsValidPhone(userinput):
		acc, err = s.accounts.FindByPhone(ctx, utils.NormalizePhone(userinput))
	default:
		acc, err = s.accounts.FindByUsername(ctx, userinput)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Compare(password, acc.Password)
	if err != nil {
		logger.WarnContext(ctx, "Password hash comparison failed", "account_id", acc.ID, "error", err)
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return acc, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// UpdateProfile applies the change-user step. full requires both names.
func (s *AccountService) UpdateProfile(ctx context.Context, id int64, upd domain.ProfileUpdate, full bool) (*domain.Account, error) {
	upd.Normalize()
	if err := upd.Validate(full); err != nil {
		return nil, err
	}
	// a submitted password is plaintext whatever it looks like
	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		upd.Password = &hash
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := upd.Apply(*current)
	next.AuthStatus = current.AuthStatus.AfterProfileUpdate()
	next, err = s.normalize(next)
	if err != nil {
		return nil, err
	}

	updated, err := s.accounts.Update(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.publish(ctx, events.AccountProfileUpdate, events.AccountProfileUpdatedEvent{
		AccountID:  updated.ID,
		AuthStatus: string(updated.AuthStatus),
		OccurredAt: s.now(),
	})
	return updated, nil
}

// UpdatePhoto stores a new photo and drops the previous one.
func (s *AccountService) UpdatePhoto(ctx context.Context, id int64, filename string, r io.Reader, size int64) (*domain.Account, error) {
	ext, err := domain.ValidatePhotoName(filename)
	if err != nil {
		return nil, err
	}
	if size <= 0 || size > domain.MaxPhotoSize {
		return nil, domain.NewValidationError("photo", "photo must be between 1 byte and 5MB")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.photos.Put(ctx, id, ext, r, size)
	if err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	next := *current
	next.Photo = key
	next.AuthStatus = current.AuthStatus.AfterPhotoUpload()
	updated, err := s.accounts.Update(ctx, next)
	if err != nil {
		if delErr := s.photos.Delete(ctx, id, key); delErr != nil {
			logger.WarnContext(ctx, "Failed to remove orphaned photo", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	if current.Photo != "" && current.Photo != key {
		if err := s.photos.Delete(ctx, id, current.Photo); err != nil {
			logger.WarnContext(ctx, "Failed to remove previous photo", "key", current.Photo, "error", err)
		}
	}

	s.publish(ctx, events.AccountProfileUpdate, events.AccountProfileUpdatedEvent{
		AccountID:  updated.ID,
		AuthStatus: string(updated.AuthStatus),
		Photo:      true,
		OccurredAt: s.now(),
	})
	return updated, nil
}

// Summary is the client view of acc with the photo key resolved to a link.
func (s *AccountService) Summary(ctx context.Context, acc *domain.Account) *domain.AccountInfo {
	info := acc.ToAccountInfo()
	if acc.Photo == "" {
		return info
	}
	url, err := s.photos.URL(ctx, acc.Photo)
	if err != nil {
		logger.WarnContext(ctx, "Failed to presign photo url", "account_id", acc.ID, "error", err)
		return info
	}
	info.Photo = url
	return info
}

func (s *AccountService) normalize(acc domain.Account) (domain.Account, error) {
	return domain.NormalizeAccount(acc, domain.NormalizeDeps{Hasher: s.hasher, Suffix: s.suffix})
}

func (s *AccountService) publish(ctx context.Context, subject string, data any) {
	if err := s.events.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
