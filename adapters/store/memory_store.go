package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// MemoryStore is an in-memory implementation of the ChallengeStore and
// UserStore interfaces. A single mutex guards both maps, which makes the
// mark-used flip and the user upsert naturally atomic.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*core.Challenge // keyed by challenge token
	users      map[string]*core.User      // keyed by wallet address
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]*core.Challenge),
		users:      make(map[string]*core.User),
	}
}

var (
	_ ports.ChallengeStore = (*MemoryStore)(nil)
	_ ports.UserStore      = (*MemoryStore)(nil)
)

// Create persists a fresh challenge, rejecting duplicate tokens.
func (s *MemoryStore) Create(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.challenges[challenge.Token]; exists {
		return core.ErrConflict
	}

	cp := *challenge
	s.challenges[challenge.Token] = &cp
	return nil
}

// FindByToken returns a copy of the challenge for a token.
func (s *MemoryStore) FindByToken(ctx context.Context, token string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[token]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}

	cp := *challenge
	return &cp, nil
}

// MarkUsed flips the challenge to used; exactly one concurrent caller wins.
func (s *MemoryStore) MarkUsed(ctx context.Context, token string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[token]
	if !ok {
		return core.ErrChallengeNotFound
	}
	if challenge.Used {
		return core.ErrChallengeUsed
	}

	challenge.Used = true
	challenge.UsedAt = &usedAt
	return nil
}

// LinkUser records the authenticated user id on the challenge.
func (s *MemoryStore) LinkUser(ctx context.Context, token string, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[token]
	if !ok {
		return core.ErrChallengeNotFound
	}

	challenge.LinkedUserID = userID
	return nil
}

// DeleteByToken removes a challenge; deleting an absent token is a no-op.
func (s *MemoryStore) DeleteByToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, token)
	return nil
}

// PurgeExpired removes this wallet's expired, unused challenges.
func (s *MemoryStore) PurgeExpired(ctx context.Context, walletAddress string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, challenge := range s.challenges {
		if challenge.WalletAddress == walletAddress && !challenge.Used && !now.Before(challenge.ExpiresAt) {
			delete(s.challenges, token)
		}
	}
	return nil
}

// PurgeUsedOlderThan removes this wallet's used challenges consumed before cutoff.
func (s *MemoryStore) PurgeUsedOlderThan(ctx context.Context, walletAddress string, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, challenge := range s.challenges {
		if challenge.WalletAddress == walletAddress && challenge.Used &&
			challenge.UsedAt != nil && challenge.UsedAt.Before(cutoff) {
			delete(s.challenges, token)
		}
	}
	return nil
}

// Upsert creates the user on first authentication and bumps LastLoginAt
// thereafter. The store mutex makes concurrent first-time upserts resolve
// to a single row.
func (s *MemoryStore) Upsert(ctx context.Context, walletAddress string, now time.Time) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[walletAddress]; ok {
		if now.After(user.LastLoginAt) {
			user.LastLoginAt = now
		}
		cp := *user
		return &cp, nil
	}

	user := &core.User{
		ID:            uuid.New().String(),
		WalletAddress: walletAddress,
		CreatedAt:     now,
		LastLoginAt:   now,
	}
	s.users[walletAddress] = user

	cp := *user
	return &cp, nil
}

// FindByWallet returns the user for a wallet address, or nil if absent.
func (s *MemoryStore) FindByWallet(ctx context.Context, walletAddress string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[walletAddress]
	if !ok {
		return nil, nil
	}

	cp := *user
	return &cp, nil
}
