package nonce

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	token, err := Generate()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(token, TokenPrefix))
	// Prefix plus 32 hex-encoded bytes.
	require.Len(t, token, len(TokenPrefix)+2*nonceBytes)
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token, err := Generate()
		require.NoError(t, err)

		_, dup := seen[token]
		require.False(t, dup, "duplicate token generated")
		seen[token] = struct{}{}
	}
}

func TestExpiryOf(t *testing.T) {
	now := time.Now()
	require.Equal(t, now.Add(5*time.Minute), ExpiryOf(now, 5*time.Minute))
}

func TestIsExpired(t *testing.T) {
	now := time.Now()

	require.False(t, IsExpired(now.Add(time.Second), now))
	require.True(t, IsExpired(now.Add(-time.Second), now))
	// The expiry instant itself is already expired.
	require.True(t, IsExpired(now, now))
}
