package domain

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	EmailCodeTTL = 6 * time.Minute
	PhoneCodeTTL = 3 * time.Minute
	CodeLength   = 4
)

// CodeTTL is how long a code sent over channel stays usable.
func CodeTTL(channel AuthType) (time.Duration, error) {
	switch channel {
	case ViaEmail:
		return EmailCodeTTL, nil
	case ViaPhone:
		return PhoneCodeTTL, nil
	default:
		return 0, NewValidationError("auth_type", MsgInvalidContact)
	}
}

type VerificationCode struct {
	ID          int64
	AccountID   int64
	Code        string
	VerifyType  AuthType
	ExpiresAt   time.Time
	IsConfirmed bool
	CreatedAt   time.Time
}

// NewVerificationCode prepares an unsaved code with its expiry derived from
// the channel.
func NewVerificationCode(accountID int64, channel AuthType, code string, now time.Time) (*VerificationCode, error) {
	ttl, err := CodeTTL(channel)
	if err != nil {
		return nil, err
	}
	return &VerificationCode{
		AccountID:  accountID,
		Code:       code,
		VerifyType: channel,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}, nil
}

// Usable reports whether the code can still be confirmed at now.
func (c *VerificationCode) Usable(now time.Time) bool {
	return !c.IsConfirmed && now.Before(c.ExpiresAt)
}

// RandomSource yields integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// GenerateCode draws CodeLength independent uniform digits from rng.
func GenerateCode(rng RandomSource) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for range CodeLength {
		b.WriteString(strconv.Itoa(rng.IntN(10)))
	}
	return b.String()
}

// CryptoSource is a RandomSource backed by crypto/rand. It is safe for
// concurrent use.
type CryptoSource struct{}

func (CryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		panic("crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}
