package ports

import (
	"context"
	"time"

	"github.com/layer-3/walletgate/core"
)

// ChallengeStore is the durable record of outstanding and consumed
// challenges. It is mutated only by the authentication service.
type ChallengeStore interface {
	// Create persists a fresh challenge. Returns core.ErrConflict if a
	// challenge with the same token already exists.
	Create(ctx context.Context, challenge *core.Challenge) error

	// FindByToken returns the challenge for a token, or
	// core.ErrChallengeNotFound if absent.
	FindByToken(ctx context.Context, token string) (*core.Challenge, error)

	// MarkUsed flips the challenge to used. The transition is a conditional
	// atomic update: under concurrent calls for the same token exactly one
	// succeeds, the rest get core.ErrChallengeUsed. Returns
	// core.ErrChallengeNotFound if the challenge no longer exists.
	MarkUsed(ctx context.Context, token string, usedAt time.Time) error

	// LinkUser records the id of the user a challenge authenticated.
	LinkUser(ctx context.Context, token string, userID string) error

	// DeleteByToken removes a challenge. Deleting an absent challenge is a no-op.
	DeleteByToken(ctx context.Context, token string) error

	// PurgeExpired removes this wallet's expired, unused challenges.
	PurgeExpired(ctx context.Context, walletAddress string, now time.Time) error

	// PurgeUsedOlderThan removes this wallet's used challenges consumed
	// before the cutoff.
	PurgeUsedOlderThan(ctx context.Context, walletAddress string, cutoff time.Time) error
}

// UserStore holds the authenticated identities, keyed by wallet address.
type UserStore interface {
	// Upsert creates the user on first authentication and bumps LastLoginAt
	// thereafter. It is idempotent under concurrent first-time authentication
	// for the same wallet: exactly one create wins, the loser reads the
	// existing row. Returns the current user.
	Upsert(ctx context.Context, walletAddress string, now time.Time) (*core.User, error)

	// FindByWallet returns the user for a wallet address, or nil if absent.
	FindByWallet(ctx context.Context, walletAddress string) (*core.User, error)
}
