package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

// AudienceSession marks tokens issued by this service as session credentials.
const AudienceSession = "session:access"

// JWTTokenizer implements the SessionTokenizer interface using ES256 JWTs.
type JWTTokenizer struct {
	signKey  *ecdsa.PrivateKey
	lifetime time.Duration
}

// NewJWTTokenizer creates a new JWT tokenizer signing with signKey and
// issuing tokens valid for lifetime.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, lifetime time.Duration) ports.SessionTokenizer {
	return &JWTTokenizer{signKey: signKey, lifetime: lifetime}
}

// Issue produces a signed session token for the authenticated user.
func (j *JWTTokenizer) Issue(userID, walletAddress string, now time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   walletAddress,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.lifetime)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// Validate parses and checks a session token, evaluating expiry against the
// supplied now rather than the wall clock.
func (j *JWTTokenizer) Validate(tokenStr string, now time.Time) (*core.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	},
		jwt.WithAudience(AudienceSession),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, core.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, core.ErrTokenSignature
		default:
			return nil, core.ErrTokenMalformed
		}
	}

	if !token.Valid {
		return nil, core.ErrTokenMalformed
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrTokenMalformed
	}

	return &core.SessionClaims{
		UserID:        claims.UserID,
		WalletAddress: claims.Subject,
		IssuedAt:      claims.IssuedAt.Time,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}
