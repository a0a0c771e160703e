package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/service"
)

// genericAuthMessage is the single boundary message for every verification
// failure. Rejections never say which check failed, so callers cannot probe
// for issued challenges or oracle the verifier.
const genericAuthMessage = "invalid or expired challenge"

// AuthHandlers contains the HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService, logger *slog.Logger) *AuthHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Challenge handles challenge issuance requests.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "walletAddress is required"})
		return
	}

	challenge, err := h.authService.IssueChallenge(c.Request.Context(), req.WalletAddress)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge": challenge.Token,
		"expiresAt": challenge.ExpiresAt,
	})
}

// Login handles challenge verification and session issuance.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
		Challenge     string `json:"challenge" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "walletAddress, challenge and signature are required"})
		return
	}

	token, user, err := h.authService.VerifyAndAuthenticate(c.Request.Context(), req.WalletAddress, req.Challenge, req.Signature)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated identity attached by the auth middleware.
func (h *AuthHandlers) Me(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":        identity.UserID,
		"walletAddress": identity.WalletAddress,
	})
}

// Authorize confirms the bearer token validated by the auth middleware.
func (h *AuthHandlers) Authorize(c *gin.Context) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized":    true,
		"walletAddress": identity.WalletAddress,
	})
}

// respondError maps service errors onto the boundary taxonomy. The specific
// reason is logged server-side only; clients get a stable category and a
// generic message.
func (h *AuthHandlers) respondError(c *gin.Context, err error) {
	switch {
	case core.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
	case core.IsAuthError(err):
		h.logger.Warn("authentication rejected", "path", c.FullPath(), "reason", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth_error", "message": genericAuthMessage})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "internal server error"})
	}
}
