// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	DashboardCacheTTL time.Duration
	ShutdownTimeout   time.Duration
}

// Load reads configuration from the environment, applying defaults for
// everything except DATABASE_URL and the Stripe keys, which the caller
// must validate.
func Load() Config {
	return Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            getEnv("CURRENCY", "usd"),
		DashboardCacheTTL:   getEnvDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
