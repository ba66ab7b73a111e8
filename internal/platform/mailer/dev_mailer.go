package mailer

import (
	"context"

	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
	"github.com/google/uuid"
)

// DevMailer writes messages to the log instead of delivering them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error) {
	id := uuid.NewString()
	logger.InfoContext(ctx, "[DEV MAIL]",
		"message_id", id,
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return id, nil
}
