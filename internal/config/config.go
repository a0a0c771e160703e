// Package config loads runtime configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Every field has a
// sensible default; only the values that differ per deployment need to be
// set.
type Config struct {
	Port           string        // HTTP port to listen on
	RedisURL       string        // Redis connection URL; empty selects the in-memory store
	SigningKeyFile string        // PEM file with the EC session-signing key; empty generates an ephemeral key
	ChallengeTTL   time.Duration // validity window of an issued challenge
	SessionTTL     time.Duration // lifetime of an issued session token
	Retention      time.Duration // how long used challenges are kept

	ChallengePerMinute int // per-IP budget for challenge issuance
	LoginPerMinute     int // per-IP budget for verification, stricter
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first if present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:               envStr("PORT", "9000"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SigningKeyFile:     os.Getenv("SIGNING_KEY_FILE"),
		ChallengeTTL:       envDur("CHALLENGE_TTL", 5*time.Minute),
		SessionTTL:         envDur("SESSION_TTL", 24*time.Hour),
		Retention:          envDur("CHALLENGE_RETENTION", 24*time.Hour),
		ChallengePerMinute: envInt("RATE_LIMIT_CHALLENGE_PER_MINUTE", 30),
		LoginPerMinute:     envInt("RATE_LIMIT_LOGIN_PER_MINUTE", 10),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
