package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
	"github.com/google/go-querystring/query"
)

type Service interface {
	Send(ctx context.Context, phone, text string) error
}

// SendVerificationCode renders the code text and hands it to svc.
func SendVerificationCode(ctx context.Context, svc Service, phone, code string, ttl time.Duration) error {
	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
	if err := svc.Send(ctx, phone, text); err != nil {
		return fmt.Errorf("send verification sms: %w", err)
	}
	return nil
}

// sendForm is the body the gateway expects as application/x-www-form-urlencoded.
type sendForm struct {
	UserID         string `url:"userid"`
	Password       string `url:"password"`
	SenderID       string `url:"senderid"`
	SendMethod     string `url:"sendMethod"`
	MsgType        string `url:"msgType"`
	Msg            string `url:"msg"`
	Mobile         string `url:"mobile"`
	DuplicateCheck bool   `url:"duplicatecheck"`
	Output         string `url:"output"`
}

// Gateway posts messages to an HTTP SMS portal.
type Gateway struct {
	baseURL  string
	userID   string
	password string
	senderID string
	client   *http.Client
}

func NewGateway(baseURL, userID, password, senderID string) *Gateway {
	return &Gateway{
		baseURL:  strings.TrimSpace(baseURL),
		userID:   userID,
		password: password,
		senderID: senderID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Gateway) Send(ctx context.Context, phone, text string) error {
	if g.baseURL == "" {
		return fmt.Errorf("sms gateway disabled (missing SMS_GATEWAY_URL)")
	}
	start := time.Now()

	form, err := query.Values(sendForm{
		UserID:         g.userID,
		Password:       g.password,
		SenderID:       g.senderID,
		SendMethod:     "quick",
		MsgType:        "text",
		Msg:            text,
		Mobile:         phone,
		DuplicateCheck: true,
		Output:         "json",
	})
	if err != nil {
		return fmt.Errorf("encode sms form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms http error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		logger.ErrorContext(ctx, "SMS send failed",
			"status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"response", strings.TrimSpace(string(body)),
		)
		return fmt.Errorf("sms api error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logger.DebugContext(ctx, "SMS sent", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// DevSender logs messages instead of sending them.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (DevSender) Send(ctx context.Context, phone, text string) error {
	logger.InfoContext(ctx, "[DEV SMS]", "to", phone, "text", text)
	return nil
}
