package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletgate/adapters/events"
	"github.com/layer-3/walletgate/adapters/store"
	"github.com/layer-3/walletgate/adapters/tokenizer"
	"github.com/layer-3/walletgate/internal/config"
	"github.com/layer-3/walletgate/ports"
	"github.com/layer-3/walletgate/service"
	transport "github.com/layer-3/walletgate/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	signKey, err := loadSigningKey(cfg.SigningKeyFile)
	if err != nil {
		logger.Error("failed to load signing key", "error", err)
		os.Exit(1)
	}

	var (
		challengeStore ports.ChallengeStore
		userStore      ports.UserStore
		eventPub       ports.EventPublisher
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse Redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)

		redisStore := store.NewRedisStore(redisClient, cfg.Retention)
		challengeStore = redisStore
		userStore = redisStore

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewSlogLogger(logger),
		)
		if err != nil {
			logger.Error("failed to create Redis publisher", "error", err)
			os.Exit(1)
		}
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		logger.Warn("REDIS_URL not set, using in-memory store; state is lost on restart")
		memStore := store.NewMemoryStore()
		challengeStore = memStore
		userStore = memStore
	}

	sessionTokenizer := tokenizer.NewJWTTokenizer(signKey, cfg.SessionTTL)

	authService := service.NewAuthService(
		challengeStore,
		userStore,
		sessionTokenizer,
		eventPub,
		logger,
		service.Config{
			ChallengeTTL: cfg.ChallengeTTL,
			Retention:    cfg.Retention,
		},
	)

	router := transport.SetupRouter(authService, logger, transport.RateLimits{
		ChallengePerMinute: cfg.ChallengePerMinute,
		LoginPerMinute:     cfg.LoginPerMinute,
	})

	logger.Info("starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// loadSigningKey reads an EC private key from a PEM file, or generates an
// ephemeral one when no file is configured. Ephemeral keys invalidate all
// sessions on restart.
func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	if path == "" {
		slog.Warn("SIGNING_KEY_FILE not set, generating ephemeral session signing key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC private key: %w", err)
	}

	return key, nil
}
