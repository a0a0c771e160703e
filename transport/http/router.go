package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletgate/service"
)

// RateLimits carries the per-endpoint request budgets. Zero disables the
// limiter for that endpoint.
type RateLimits struct {
	ChallengePerMinute int
	LoginPerMinute     int
}

// SetupRouter sets up the Gin router. The verification endpoint carries a
// stricter budget than issuance.
func SetupRouter(authService *service.AuthService, logger *slog.Logger, limits RateLimits) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService, logger)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", RateLimit(limits.ChallengePerMinute, time.Minute), handlers.Challenge)
		auth.POST("/login", RateLimit(limits.LoginPerMinute, time.Minute), handlers.Login)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
