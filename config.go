package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	JWTSecret   string
	JWTTTLHours int
	CORSOrigin  string
	Port        string
	Environment string

	BcryptCost int

	RateLimitWindow time.Duration
	RateLimitMax    int

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	ContactEmail string
}

func loadConfig() (Config, error) {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTLHours: getenvInt("JWT_TTL_HOURS", 24*7),
		CORSOrigin:  getenv("CORS_ORIGIN", "http://localhost:5173"),
		Port:        getenv("PORT", "5000"),
		Environment: getenv("APP_ENV", "development"),

		BcryptCost: getenvInt("BCRYPT_ROUNDS", 12),

		RateLimitWindow: time.Duration(getenvInt("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
		RateLimitMax:    getenvInt("RATE_LIMIT_MAX_REQUESTS", 100),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPass:     os.Getenv("SMTP_PASS"),
		ContactEmail: os.Getenv("CONTACT_EMAIL"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is not set. Refusing to start")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is not set. Refusing to start")
	}
	if cfg.RateLimitMax < 1 {
		return cfg, fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be at least 1, got %d", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow < time.Second {
		return cfg, fmt.Errorf("RATE_LIMIT_WINDOW_MS must be at least 1000, got %d", cfg.RateLimitWindow/time.Millisecond)
	}
	if cfg.BcryptCost < 10 || cfg.BcryptCost > 16 {
		return cfg, fmt.Errorf("BCRYPT_ROUNDS must be between 10 and 16, got %d", cfg.BcryptCost)
	}
	return cfg, nil
}

// EmailEnabled reports whether a contact mail transport is configured.
func (c Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != ""
}

// Summary is the non-secret view served by GET /api/config.
func (c Config) Summary() map[string]any {
	return map[string]any{
		"auth": map[string]any{
			"auth0": map[string]any{"enabled": false},
			"email": map[string]any{"enabled": c.EmailEnabled()},
			"security": map[string]any{
				"passwordPolicy": map[string]any{
					"minLength":        8,
					"requireUppercase": true,
					"requireLowercase": true,
					"requireNumbers":   true,
				},
				"rateLimiting": map[string]any{
					"windowMs":    int64(c.RateLimitWindow / time.Millisecond),
					"maxRequests": c.RateLimitMax,
				},
			},
		},
		"server": map[string]any{
			"version":     "v1",
			"environment": c.Environment,
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
