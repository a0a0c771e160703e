package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/internal/eth"
	"github.com/layer-3/walletgate/internal/nonce"
	"github.com/layer-3/walletgate/ports"
)

// DefaultChallengeTTL is the fixed validity window of an issued challenge.
const DefaultChallengeTTL = 5 * time.Minute

// DefaultRetention is how long used challenges are kept before housekeeping
// removes them.
const DefaultRetention = 24 * time.Hour

// Config carries the orchestrator's tunable windows. Zero values fall back
// to the defaults.
type Config struct {
	ChallengeTTL time.Duration
	Retention    time.Duration
}

// AuthService orchestrates the challenge-response authentication flow:
// challenge issuance, expiry and replay enforcement, signature verification,
// user upsert and session token issuance.
type AuthService struct {
	challenges ports.ChallengeStore
	users      ports.UserStore
	tokenizer  ports.SessionTokenizer
	eventPub   ports.EventPublisher
	logger     *slog.Logger

	challengeTTL time.Duration
	retention    time.Duration
}

// NewAuthService creates a new authentication service. eventPub may be nil
// when no event transport is wired.
func NewAuthService(
	challenges ports.ChallengeStore,
	users ports.UserStore,
	tokenizer ports.SessionTokenizer,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
	cfg Config,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	return &AuthService{
		challenges:   challenges,
		users:        users,
		tokenizer:    tokenizer,
		eventPub:     eventPub,
		logger:       logger,
		challengeTTL: cfg.ChallengeTTL,
		retention:    cfg.Retention,
	}
}

// IssueChallenge creates and persists a fresh challenge for a wallet. The
// caller is unauthenticated at this point; abuse is bounded by the rate
// limiter in front of the handler.
func (s *AuthService) IssueChallenge(ctx context.Context, walletAddress string) (*core.Challenge, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address: %w", core.ErrMissingField)
	}
	if !eth.IsValidAddress(walletAddress) {
		return nil, core.ErrInvalidAddress
	}
	wallet := eth.Normalize(walletAddress)

	now := time.Now()

	// Housekeeping; a partial failure must not block issuance.
	if err := s.challenges.PurgeExpired(ctx, wallet, now); err != nil {
		s.logger.Warn("failed to purge expired challenges", "wallet", wallet, "error", err)
	}

	challenge, err := s.newChallenge(wallet, now)
	if err != nil {
		return nil, err
	}

	err = s.challenges.Create(ctx, challenge)
	if errors.Is(err, core.ErrConflict) {
		// Token collision is astronomically unlikely; regenerate once.
		if challenge, err = s.newChallenge(wallet, now); err != nil {
			return nil, err
		}
		err = s.challenges.Create(ctx, challenge)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist challenge: %w", err)
	}

	return challenge, nil
}

func (s *AuthService) newChallenge(wallet string, now time.Time) (*core.Challenge, error) {
	token, err := nonce.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}

	return &core.Challenge{
		ID:            uuid.New().String(),
		Token:         token,
		WalletAddress: wallet,
		IssuedAt:      now,
		ExpiresAt:     nonce.ExpiryOf(now, s.challengeTTL),
	}, nil
}

// VerifyAndAuthenticate checks a signed challenge and, on success, consumes
// it, upserts the user and issues a session token. A challenge can be
// consumed at most once regardless of concurrent requests.
func (s *AuthService) VerifyAndAuthenticate(ctx context.Context, walletAddress, token, signature string) (string, *core.User, error) {
	switch {
	case walletAddress == "":
		return "", nil, fmt.Errorf("wallet address: %w", core.ErrMissingField)
	case token == "":
		return "", nil, fmt.Errorf("challenge token: %w", core.ErrMissingField)
	case signature == "":
		return "", nil, fmt.Errorf("signature: %w", core.ErrMissingField)
	}
	if !eth.IsValidAddress(walletAddress) {
		return "", nil, core.ErrInvalidAddress
	}
	wallet := eth.Normalize(walletAddress)

	challenge, err := s.challenges.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrChallengeNotFound) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("failed to look up challenge: %w", err)
	}

	// A challenge only authenticates the wallet it was issued for.
	if challenge.WalletAddress != wallet {
		return "", nil, core.ErrWalletMismatch
	}

	now := time.Now()

	if nonce.IsExpired(challenge.ExpiresAt, now) {
		if err := s.challenges.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired challenge", "wallet", wallet, "error", err)
		}
		return "", nil, core.ErrChallengeExpired
	}

	if challenge.Used {
		return "", nil, core.ErrChallengeUsed
	}

	// The signed message is the challenge token verbatim.
	if !eth.VerifyPersonalSign(wallet, challenge.Token, signature) {
		return "", nil, core.ErrInvalidSignature
	}

	// The exclusive gate: a concurrent request holding the same valid
	// signature may have consumed the challenge after the check above.
	if err := s.challenges.MarkUsed(ctx, token, now); err != nil {
		if errors.Is(err, core.ErrChallengeUsed) || errors.Is(err, core.ErrChallengeNotFound) {
			return "", nil, fmt.Errorf("challenge consumed concurrently: %w", core.ErrChallengeUsed)
		}
		return "", nil, fmt.Errorf("failed to consume challenge: %w", err)
	}

	// From here the challenge is consumed. A failure leaves the client with
	// no session and a spent challenge; it must restart with a fresh one,
	// since reopening the consumed challenge would reopen a replay window.
	user, err := s.users.Upsert(ctx, wallet, now)
	if err != nil {
		return "", nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if err := s.challenges.LinkUser(ctx, token, user.ID); err != nil {
		s.logger.Warn("failed to link challenge to user", "wallet", wallet, "error", err)
	}

	sessionToken, err := s.tokenizer.Issue(user.ID, user.WalletAddress, now)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	if err := s.challenges.PurgeUsedOlderThan(ctx, wallet, now.Add(-s.retention)); err != nil {
		s.logger.Warn("failed to purge used challenges", "wallet", wallet, "error", err)
	}

	if s.eventPub != nil {
		firstLogin := user.CreatedAt.Equal(user.LastLoginAt)
		if err := s.eventPub.PublishLogin(ctx, user.WalletAddress, user.ID, firstLogin); err != nil {
			s.logger.Warn("failed to publish login event", "wallet", wallet, "error", err)
		}
	}

	return sessionToken, user, nil
}

// ValidateSession validates a bearer session token and returns its claims.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.SessionClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("session token: %w", core.ErrMissingField)
	}
	return s.tokenizer.Validate(token, time.Now())
}
