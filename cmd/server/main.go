package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/kaucjaflow/internal/config"
	"github.com/prudhvinik1/kaucjaflow/internal/database"
	"github.com/prudhvinik1/kaucjaflow/internal/handlers"
	"github.com/prudhvinik1/kaucjaflow/internal/repositories"
	"github.com/prudhvinik1/kaucjaflow/internal/services"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	if err := database.EnsureSchema(ctx, postgresPool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	shopRepo := repositories.NewPostgresShopRepository(postgresPool)
	userRepo := repositories.NewPostgresUserRepository(postgresPool)
	eventRepo := repositories.NewPostgresEventRepository(postgresPool)
	sessionRepo := repositories.NewRedisSessionRepository(redisClient)
	tokenRepo := repositories.NewRedisMagicTokenRepository(redisClient)
	presenceRepo := repositories.NewRedisPresenceRepository(redisClient)

	// Services
	authService := services.NewAuthService(
		shopRepo, userRepo, sessionRepo, tokenRepo,
		services.LogMailer{Logger: logger},
		services.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			JWTExpiry:    cfg.JWTExpiry,
			LinkTTL:      cfg.MagicLinkTTL,
			LinkCooldown: cfg.MagicLinkCooldown,
			BaseURL:      cfg.AppBaseURL,
			DevLogin:     cfg.DevLogin,
		},
		logger,
	)
	if cfg.DevLogin {
		logger.Warn("dev login enabled")
	}

	h := handlers.New(
		authService,
		services.NewEventService(eventRepo, logger),
		services.NewShopService(shopRepo),
		services.NewPresenceService(presenceRepo),
		handlers.Options{
			SecureCookie: strings.HasPrefix(cfg.AppBaseURL, "https://"),
			Ready: map[string]handlers.ReadyCheck{
				"postgres": database.PostgresCheck(postgresPool),
				"redis":    database.RedisCheck(redisClient),
			},
			Logger: logger,
		},
	)

	// Start Server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
