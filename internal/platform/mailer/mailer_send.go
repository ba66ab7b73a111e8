package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

const apiSendTimeout = 10 * time.Second

// ErrMailerDisabled is returned by an APIMailer built without an API key or
// sender address (MAILERSEND_API_KEY and SMTP_FROM).
var ErrMailerDisabled = errors.New("mailersend: MAILERSEND_API_KEY and SMTP_FROM are required")

// APIError carries a non-2xx answer from the MailerSend API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailersend: status %d: %s", e.Status, e.Body)
}

// APIMailer delivers verification mail through the MailerSend HTTP API.
type APIMailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string) *APIMailer {
	apiKey, fromEmail = strings.TrimSpace(apiKey), strings.TrimSpace(fromEmail)
	m := &APIMailer{
		Enabled: apiKey != "" && fromEmail != "",
		from:    mailersend.From{Name: fromName, Email: fromEmail},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

// Send returns the provider message id.
func (m *APIMailer) Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", ErrMailerDisabled
	}
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return "", errors.New("mailersend: empty recipient")
	}

	ctx, cancel := context.WithTimeout(ctx, apiSendTimeout)
	defer cancel()

	res, err := m.client.Email.Send(ctx, m.message(toEmail, toName, subject, text, html))
	if err != nil {
		return "", fmt.Errorf("mailersend: send to %s: %w", toEmail, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return res.Header.Get("X-Message-Id"), nil
}

// message leaves blank bodies unset so the API does not reject them.
func (m *APIMailer) message(toEmail, toName, subject, text, html string) *mailersend.Message {
	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}
	return msg
}
