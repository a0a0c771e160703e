package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines the standard claims with the authenticated user id.
// The wallet address travels as the subject.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}
