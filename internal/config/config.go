package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	JWTExpiry         time.Duration
	AppBaseURL        string
	MagicLinkTTL      time.Duration
	MagicLinkCooldown time.Duration
	DevLogin          bool
}

func LoadConfig() (*Config, error) {
	expiry, err := time.ParseDuration(getEnv("JWT_EXPIRY", "336h"))
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}
	linkTTL, err := time.ParseDuration(getEnv("MAGIC_LINK_TTL", "15m"))
	if err != nil {
		return nil, errors.New("invalid MAGIC_LINK_TTL format")
	}
	cooldown, err := time.ParseDuration(getEnv("MAGIC_LINK_COOLDOWN", "1m"))
	if err != nil {
		return nil, errors.New("invalid MAGIC_LINK_COOLDOWN format")
	}
	devLogin, err := strconv.ParseBool(getEnv("DEV_LOGIN", "false"))
	if err != nil {
		return nil, errors.New("invalid DEV_LOGIN value")
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiry:         expiry,
		AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:8080"),
		MagicLinkTTL:      linkTTL,
		MagicLinkCooldown: cooldown,
		DevLogin:          devLogin,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
