package mailer

import (
	"context"
	"fmt"
	"time"
)

type Service interface {
	Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error)
}

// SendVerificationCode renders the code email and hands it to svc.
func SendVerificationCode(ctx context.Context, svc Service, toEmail, code string, ttl time.Duration) error {
	subject, text, html := verificationMessage(code, ttl)
	if _, err := svc.Send(ctx, toEmail, "", subject, text, html); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func verificationMessage(code string, ttl time.Duration) (subject, text, html string) {
	minutes := int(ttl.Minutes())
	subject = "Your verification code"
	text = fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
	html = fmt.Sprintf(`<p>Your verification code is <b>%s</b></p><p>It expires in %d minutes.</p>`, code, minutes)
	return subject, text, html
}
