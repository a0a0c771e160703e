package core

import "time"

// Challenge represents a single issued authentication attempt. The Token is
// the primary lookup key; it is the exact byte sequence the wallet signs
// during login.
type Challenge struct {
	ID            string     // Unique record identifier
	Token         string     // Opaque unguessable challenge token
	WalletAddress string     // Wallet the challenge was issued for (EIP-55 form)
	IssuedAt      time.Time  // When the challenge was created
	ExpiresAt     time.Time  // When the challenge becomes invalid
	Used          bool       // Set true exactly once on successful verification
	UsedAt        *time.Time // When Used transitioned to true
	LinkedUserID  string     // Back-reference to the authenticated user, set post-verification
}

// User represents an authenticated wallet identity. Exactly one User exists
// per wallet address; the address is immutable after creation.
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLoginAt   time.Time `json:"lastLoginAt"`
}

// SessionClaims is the identity assertion embedded in a session token.
// It is self-contained: validity is the token signature plus the current
// time, never a store lookup.
type SessionClaims struct {
	UserID        string    // Authenticated user id
	WalletAddress string    // Wallet that performed the signature
	IssuedAt      time.Time // When the token was issued
	ExpiresAt     time.Time // When the token stops being accepted
}
