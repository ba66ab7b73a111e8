package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/internal/repo/postgres"
	"github.com/diagnosis/luxsuv-accounts/pkg/events"
	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
)

// CodeSender delivers a code to an email address or phone number.
type CodeSender interface {
	Send(ctx context.Context, destination, code string) error
}

type VerificationService struct {
	codes  postgres.VerifyRepo
	sender CodeSender
	events events.Publisher
	rng    domain.RandomSource
	now    func() time.Time
}

func NewVerificationService(codes postgres.VerifyRepo, sender CodeSender, publisher events.Publisher) *VerificationService {
	return &VerificationService{
		codes:  codes,
		sender: sender,
		events: publisher,
		rng:    domain.CryptoSource{},
		now:    time.Now,
	}
}

// RequestNewCode issues a code over the account's channel and delivers it.
// It refuses while a previous code is still usable.
func (s *VerificationService) RequestNewCode(ctx context.Context, acc *domain.Account) (*domain.VerificationCode, error) {
	dest, err := acc.Destination()
	if err != nil {
		return nil, err
	}

	now := s.now()
	code, err := domain.NewVerificationCode(acc.ID, acc.AuthType, domain.GenerateCode(s.rng), now)
	if err != nil {
		return nil, err
	}
	saved, err := s.codes.CreateIfNoneActive(ctx, code, now)
	if err != nil {
		if domain.IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create code: %w", err)
	}

	if err := s.sender.Send(ctx, dest, saved.Code); err != nil {
		return nil, fmt.Errorf("deliver code: %w", err)
	}

	logger.InfoContext(ctx, "Verification code issued", "account_id", acc.ID, "channel", acc.AuthType)
	if err := s.events.Publish(ctx, events.VerificationIssued, events.VerificationIssuedEvent{
		AccountID:  acc.ID,
		Channel:    string(acc.AuthType),
		ExpiresAt:  saved.ExpiresAt,
		OccurredAt: now,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", events.VerificationIssued, "error", err)
	}
	return saved, nil
}

// CheckCode confirms submitted for the account and returns the account with
// its advanced status.
func (s *VerificationService) CheckCode(ctx context.Context, accountID int64, submitted string) (*domain.Account, error) {
	submitted = strings.TrimSpace(submitted)
	if !isCode(submitted) {
		return nil, domain.NewValidationError("code", domain.MsgCodeInvalid)
	}

	now := s.now()
	acc, err := s.codes.Confirm(ctx, accountID, submitted, now)
	if err != nil {
		if domain.IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("confirm code: %w", err)
	}

	logger.InfoContext(ctx, "Verification code confirmed", "account_id", acc.ID, "auth_status", acc.AuthStatus)
	if err := s.events.Publish(ctx, events.AccountVerified, events.AccountVerifiedEvent{
		AccountID:  acc.ID,
		AuthStatus: string(acc.AuthStatus),
		OccurredAt: now,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", events.AccountVerified, "error", err)
	}
	return acc, nil
}

// Prune deletes codes that stopped being usable more than retention ago.
func (s *VerificationService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune codes: %w", err)
	}
	return n, nil
}

func isCode(s string) bool {
	if len(s) != domain.CodeLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
