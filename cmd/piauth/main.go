package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/pinftbay/piauth/adapters/events"
	"github.com/pinftbay/piauth/adapters/store"
	"github.com/pinftbay/piauth/adapters/tokenizer"
	"github.com/pinftbay/piauth/adapters/verifier"
	"github.com/pinftbay/piauth/config"
	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/logging"
	"github.com/pinftbay/piauth/ports"
	"github.com/pinftbay/piauth/service"
	httptransport "github.com/pinftbay/piauth/transport/http"
	"github.com/redis/go-redis/v9"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(logging.Config{
		Service: "piauth",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("piauth stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	challengeStore, publisher, closeBackends, err := setupBackends(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackends()

	codec, err := setupCodec(cfg, logger)
	if err != nil {
		return err
	}

	mode := cfg.Mode()
	var piVerifier ports.Verifier
	if mode == core.ModeProduction {
		piVerifier = verifier.NewPiVerifier(cfg.PiAPIURL, cfg.PiAPIKey, logger)
	} else {
		piVerifier = verifier.NewSandboxVerifier()
	}

	authService := service.NewAuthService(
		service.Config{
			Mode:                      mode,
			RequireChallengeRoundTrip: cfg.RequireChallenge,
		},
		piVerifier,
		challengeStore,
		codec,
		events.NewWatermillPublisher(publisher),
		service.WithLogger(logger),
	)

	router := httptransport.SetupRouter(authService, httptransport.Options{
		Logger:             logger,
		AllowedOrigins:     cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Development:        cfg.Development(),
		PiSandbox:          cfg.PiSandbox,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("piauth listening",
			"addr", server.Addr,
			"pi_api_mode", mode,
			"token_format", cfg.SessionTokenFormat,
			"redis", cfg.RedisURL != "",
		)
		serverErrors <- server.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful server shutdown failed", "error", err)
		return server.Close()
	}

	logger.Info("shutdown complete")
	return nil
}

// setupBackends uses Redis for challenges and events when REDIS_URL is set, in-process otherwise
func setupBackends(cfg config.Config, logger *slog.Logger) (ports.ChallengeStore, message.Publisher, func(), error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL == "" {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return store.NewMemoryStore(), pubSub, func() { _ = pubSub.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	closer := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close publisher", "error", err)
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}

	return store.NewRedisStore(redisClient), publisher, closer, nil
}

func setupCodec(cfg config.Config, logger *slog.Logger) (ports.Codec, error) {
	if cfg.SessionTokenFormat == config.TokenFormatLegacy {
		logger.Warn("legacy session tokens are unsigned; use SESSION_TOKEN_FORMAT=jwt outside development")
		return tokenizer.NewBase64Codec(), nil
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("SESSION_SECRET is not set; using a random secret, tokens will not survive a restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}

	return tokenizer.NewJWTCodec(secret)
}
