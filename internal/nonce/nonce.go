// Package nonce generates challenge tokens and computes their expiry.
package nonce

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenPrefix namespaces challenge tokens so they cannot collide with
// unrelated tokens sharing the same keyspace.
const TokenPrefix = "wgc_"

// nonceBytes is the entropy of a challenge token: 32 bytes, 256 bits.
const nonceBytes = 32

// Generate returns a fresh unguessable challenge token. The only failure
// mode is entropy-source exhaustion, which callers treat as fatal.
func Generate() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read entropy source: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(buf), nil
}

// ExpiryOf computes the absolute expiry of a challenge issued at now.
func ExpiryOf(now time.Time, window time.Duration) time.Time {
	return now.Add(window)
}

// IsExpired reports whether a challenge with the given expiry is no longer
// valid at now.
func IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}
