package core

import "errors"

var (
	// ErrInvalidAddress is returned when a wallet address fails structural
	// or checksum validation.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrMissingField is returned when a required request field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrChallengeNotFound is returned when no challenge exists for a token.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a challenge is past its expiry.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrChallengeUsed is returned when a challenge was already consumed.
	ErrChallengeUsed = errors.New("challenge already used")

	// ErrWalletMismatch is returned when a challenge is presented with a
	// wallet address other than the one it was issued for.
	ErrWalletMismatch = errors.New("challenge issued for another wallet")

	// ErrInvalidSignature is returned when a wallet signature does not
	// verify against the challenge token and address.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrTokenMalformed is returned when a session token cannot be parsed.
	ErrTokenMalformed = errors.New("malformed session token")

	// ErrTokenSignature is returned when a session token signature check fails.
	ErrTokenSignature = errors.New("invalid session token signature")

	// ErrTokenExpired is returned when a session token is past its expiry.
	ErrTokenExpired = errors.New("session token expired")

	// ErrConflict is returned when a challenge token already exists on create.
	ErrConflict = errors.New("challenge token already exists")

	// ErrStoreOperationFailed is returned when a store operation fails.
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// IsInvalidInput reports whether err belongs to the invalid-input family,
// surfaced to clients as a 400.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidAddress) || errors.Is(err, ErrMissingField)
}

// IsAuthError reports whether err belongs to the authentication-failure
// family. All members collapse to one generic 401 message at the HTTP
// boundary so rejections do not leak why verification failed.
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrChallengeNotFound,
		ErrChallengeExpired,
		ErrChallengeUsed,
		ErrWalletMismatch,
		ErrInvalidSignature,
		ErrTokenMalformed,
		ErrTokenSignature,
		ErrTokenExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
