package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// markUsedScript flips a challenge to used. The conditional check and the
// write happen inside one script, so exactly one concurrent caller observes
// the unused state. Returns -1 when the challenge is gone, 0 when it was
// already used, 1 on success.
var markUsedScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -1
	end
	if redis.call('HGET', KEYS[1], 'used') == '1' then
		return 0
	end
	redis.call('HSET', KEYS[1], 'used', '1', 'used_at', ARGV[1])
	return 1
`)

// upsertUserScript creates the user hash if absent, otherwise bumps
// last_login_at without ever moving it backwards. Returns 1 when the user
// was created, 0 when it already existed.
var upsertUserScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		redis.call('HSET', KEYS[1],
			'id', ARGV[1],
			'wallet', ARGV[2],
			'created_at', ARGV[3],
			'last_login_at', ARGV[3])
		return 1
	end
	local last = tonumber(redis.call('HGET', KEYS[1], 'last_login_at'))
	local now = tonumber(ARGV[3])
	if last == nil or now > last then
		redis.call('HSET', KEYS[1], 'last_login_at', ARGV[3])
	end
	return 0
`)

// RedisStore is a Redis implementation of the ChallengeStore and UserStore
// interfaces. Challenges are hashes keyed by token with a per-wallet index
// set; users are hashes keyed by wallet address.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

var (
	_ ports.ChallengeStore = (*RedisStore)(nil)
	_ ports.UserStore      = (*RedisStore)(nil)
)

// NewRedisStore creates a new Redis store. Challenge keys expire on their
// own after the challenge expiry plus retention, so purges are a
// housekeeping complement rather than the only cleanup path.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		prefix:    "walletgate:",
		retention: retention,
	}
}

func (s *RedisStore) challengeKey(token string) string {
	return s.prefix + "challenge:" + token
}

func (s *RedisStore) walletKey(walletAddress string) string {
	return s.prefix + "wallet:" + walletAddress
}

func (s *RedisStore) userKey(walletAddress string) string {
	return s.prefix + "user:" + walletAddress
}

// Create persists a fresh challenge, rejecting duplicate tokens.
func (s *RedisStore) Create(ctx context.Context, challenge *core.Challenge) error {
	key := s.challengeKey(challenge.Token)

	// HSETNX on the id field doubles as the existence gate.
	created, err := s.client.HSetNX(ctx, key, "id", challenge.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	if !created {
		return core.ErrConflict
	}

	ttl := time.Until(challenge.ExpiresAt) + s.retention

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"wallet", challenge.WalletAddress,
		"issued_at", challenge.IssuedAt.UnixNano(),
		"expires_at", challenge.ExpiresAt.UnixNano(),
		"used", "0",
	)
	pipe.Expire(ctx, key, ttl)
	pipe.SAdd(ctx, s.walletKey(challenge.WalletAddress), challenge.Token)
	pipe.Expire(ctx, s.walletKey(challenge.WalletAddress), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	return nil
}

// FindByToken returns the challenge for a token.
func (s *RedisStore) FindByToken(ctx context.Context, token string) (*core.Challenge, error) {
	fields, err := s.client.HGetAll(ctx, s.challengeKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrChallengeNotFound
	}

	return challengeFromFields(token, fields)
}

// MarkUsed flips the challenge to used; exactly one concurrent caller wins.
func (s *RedisStore) MarkUsed(ctx context.Context, token string, usedAt time.Time) error {
	res, err := markUsedScript.Run(ctx, s.client,
		[]string{s.challengeKey(token)},
		usedAt.UnixNano(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to mark challenge used: %w", err)
	}

	switch res {
	case 1:
		return nil
	case 0:
		return core.ErrChallengeUsed
	default:
		return core.ErrChallengeNotFound
	}
}

// LinkUser records the authenticated user id on the challenge.
func (s *RedisStore) LinkUser(ctx context.Context, token string, userID string) error {
	key := s.challengeKey(token)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to link user: %w", err)
	}
	if exists == 0 {
		return core.ErrChallengeNotFound
	}

	if err := s.client.HSet(ctx, key, "user_id", userID).Err(); err != nil {
		return fmt.Errorf("failed to link user: %w", err)
	}
	return nil
}

// DeleteByToken removes a challenge; deleting an absent token is a no-op.
func (s *RedisStore) DeleteByToken(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.challengeKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// PurgeExpired removes this wallet's expired, unused challenges.
func (s *RedisStore) PurgeExpired(ctx context.Context, walletAddress string, now time.Time) error {
	return s.purgeWallet(ctx, walletAddress, func(c *core.Challenge) bool {
		return !c.Used && !now.Before(c.ExpiresAt)
	})
}

// PurgeUsedOlderThan removes this wallet's used challenges consumed before cutoff.
func (s *RedisStore) PurgeUsedOlderThan(ctx context.Context, walletAddress string, cutoff time.Time) error {
	return s.purgeWallet(ctx, walletAddress, func(c *core.Challenge) bool {
		return c.Used && c.UsedAt != nil && c.UsedAt.Before(cutoff)
	})
}

// purgeWallet walks the wallet's challenge index and deletes every
// challenge matching the predicate, pruning index entries whose hashes
// already expired on their own.
func (s *RedisStore) purgeWallet(ctx context.Context, walletAddress string, match func(*core.Challenge) bool) error {
	tokens, err := s.client.SMembers(ctx, s.walletKey(walletAddress)).Result()
	if err != nil {
		return fmt.Errorf("failed to list wallet challenges: %w", err)
	}

	for _, token := range tokens {
		fields, err := s.client.HGetAll(ctx, s.challengeKey(token)).Result()
		if err != nil {
			return fmt.Errorf("failed to inspect challenge: %w", err)
		}

		if len(fields) == 0 {
			s.client.SRem(ctx, s.walletKey(walletAddress), token)
			continue
		}

		challenge, err := challengeFromFields(token, fields)
		if err != nil {
			continue
		}

		if match(challenge) {
			pipe := s.client.TxPipeline()
			pipe.Del(ctx, s.challengeKey(token))
			pipe.SRem(ctx, s.walletKey(walletAddress), token)
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to purge challenge: %w", err)
			}
		}
	}

	return nil
}

// Upsert creates the user on first authentication and bumps LastLoginAt
// thereafter. The script makes concurrent first-time upserts resolve to a
// single row.
func (s *RedisStore) Upsert(ctx context.Context, walletAddress string, now time.Time) (*core.User, error) {
	_, err := upsertUserScript.Run(ctx, s.client,
		[]string{s.userKey(walletAddress)},
		uuid.New().String(),
		walletAddress,
		now.UnixNano(),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return s.readUser(ctx, walletAddress)
}

// FindByWallet returns the user for a wallet address, or nil if absent.
func (s *RedisStore) FindByWallet(ctx context.Context, walletAddress string) (*core.User, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(walletAddress)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return userFromFields(fields)
}

func (s *RedisStore) readUser(ctx context.Context, walletAddress string) (*core.User, error) {
	user, err := s.FindByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user missing after upsert: %w", core.ErrStoreOperationFailed)
	}
	return user, nil
}

func challengeFromFields(token string, fields map[string]string) (*core.Challenge, error) {
	issuedAt, err := nanoTime(fields["issued_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge record: %w", err)
	}
	expiresAt, err := nanoTime(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge record: %w", err)
	}

	challenge := &core.Challenge{
		ID:            fields["id"],
		Token:         token,
		WalletAddress: fields["wallet"],
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
		Used:          fields["used"] == "1",
		LinkedUserID:  fields["user_id"],
	}

	if raw, ok := fields["used_at"]; ok {
		usedAt, err := nanoTime(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt challenge record: %w", err)
		}
		challenge.UsedAt = &usedAt
	}

	return challenge, nil
}

func userFromFields(fields map[string]string) (*core.User, error) {
	createdAt, err := nanoTime(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}
	lastLoginAt, err := nanoTime(fields["last_login_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}

	return &core.User{
		ID:            fields["id"],
		WalletAddress: fields["wallet"],
		CreatedAt:     createdAt,
		LastLoginAt:   lastLoginAt,
	}, nil
}

func nanoTime(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
