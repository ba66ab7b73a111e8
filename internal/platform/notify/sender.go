package notify

import (
	"context"
	"strings"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/mailer"
	"github.com/diagnosis/luxsuv-accounts/internal/platform/sms"
)

// Sender delivers verification codes. Destinations containing "@" go to the
// mailer, everything else is treated as a phone number.
type Sender struct {
	mail mailer.Service
	sms  sms.Service
}

func NewSender(mail mailer.Service, phone sms.Service) *Sender {
	return &Sender{mail: mail, sms: phone}
}

func (s *Sender) Send(ctx context.Context, destination, code string) error {
	if strings.Contains(destination, "@") {
		return mailer.SendVerificationCode(ctx, s.mail, destination, code, domain.EmailCodeTTL)
	}
	return sms.SendVerificationCode(ctx, s.sms, destination, code, domain.PhoneCodeTTL)
}
