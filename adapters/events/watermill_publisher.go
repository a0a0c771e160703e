package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/walletgate/ports"
)

// LoginTopic is the topic successful-authentication events are published to.
const LoginTopic = "auth.login"

// LoginEvent notifies other services that a wallet authenticated.
type LoginEvent struct {
	WalletAddress string `json:"wallet_address"`
	UserID        string `json:"user_id"`
	FirstLogin    bool   `json:"first_login"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     LoginTopic,
	}
}

// PublishLogin publishes a successful-authentication event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, walletAddress, userID string, firstLogin bool) error {
	event := LoginEvent{
		WalletAddress: walletAddress,
		UserID:        userID,
		FirstLogin:    firstLogin,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
