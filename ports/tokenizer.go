package ports

import (
	"time"

	"github.com/layer-3/walletgate/core"
)

// SessionTokenizer issues and validates self-contained signed session tokens.
type SessionTokenizer interface {
	// Issue produces a signed token embedding the user identity and an
	// expiry of now plus the configured session lifetime.
	Issue(userID, walletAddress string, now time.Time) (string, error)

	// Validate parses and checks a token, returning the embedded claims.
	// Fails with core.ErrTokenMalformed, core.ErrTokenSignature or
	// core.ErrTokenExpired.
	Validate(token string, now time.Time) (*core.SessionClaims, error)
}
