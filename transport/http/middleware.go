package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletgate/service"
)

// identityKey is the context key the auth middleware stores the validated
// identity under.
const identityKey = "walletgate/identity"

// Identity is the authenticated caller attached to a request after bearer
// token validation.
type Identity struct {
	UserID        string
	WalletAddress string
}

// IdentityFromContext returns the identity attached by AuthMiddleware.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// AuthMiddleware validates the bearer session token and attaches the
// authenticated identity to the request context. Any validation failure is
// rejected with a uniform 401.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth_error", "message": "invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		claims, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth_error", "message": "invalid session"})
			return
		}

		c.Set(identityKey, Identity{
			UserID:        claims.UserID,
			WalletAddress: claims.WalletAddress,
		})

		c.Next()
	}
}
