package ports

import "context"

// EventPublisher notifies other services about authentication events.
type EventPublisher interface {
	// PublishLogin publishes a successful-authentication event.
	PublishLogin(ctx context.Context, walletAddress, userID string, firstLogin bool) error
}
