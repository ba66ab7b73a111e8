package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/luxsuv-accounts/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("accounts"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject)

	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// NopPublisher drops events. Used when NATS is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event dropped, publisher disabled", "subject", subject)
	return nil
}

func (NopPublisher) Close() error { return nil }

// Event subjects
const (
	AccountRegistered    = "account.registered"
	AccountVerified      = "account.verified"
	VerificationIssued   = "verification.code_issued"
	AccountProfileUpdate = "account.profile_updated"
)

// Event payloads
type AccountRegisteredEvent struct {
	AccountID  int64     `json:"account_id"`
	Username   string    `json:"username"`
	AuthType   string    `json:"auth_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AccountVerifiedEvent struct {
	AccountID  int64     `json:"account_id"`
	AuthStatus string    `json:"auth_status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// VerificationIssuedEvent never carries the code itself.
type VerificationIssuedEvent struct {
	AccountID  int64     `json:"account_id"`
	Channel    string    `json:"channel"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AccountProfileUpdatedEvent struct {
	AccountID  int64     `json:"account_id"`
	AuthStatus string    `json:"auth_status"`
	Photo      bool      `json:"photo"`
	OccurredAt time.Time `json:"occurred_at"`
}
