package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/config"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/dashboard"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/engine"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/httpapi"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/metrics"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/notify"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/payment"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store/postgres"
)

const version = "1.0.0"

func main() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting marketplace server", "version", version)

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
		slog.Error("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET environment variables are required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if err := runMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	st := postgres.New(db)
	m := metrics.New(prometheus.DefaultRegisterer)

	dispatcher := notify.New(st, m)
	dashboards := dashboard.NewService(dashboard.NewMemoryCache(), st, cfg.DashboardCacheTTL, m)
	eng := engine.New(st, st, dispatcher, dashboards, m)

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	payments := payment.NewService(st, eng, gateway, dispatcher, dashboards, m, cfg.Currency)

	handler := httpapi.NewHandler(eng, payments, dashboards, st, httpapi.HeaderAuth{Profiles: st})

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewRouter(handler))
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

func runMigrations(db *sql.DB) error {
	migrationSQL, err := os.ReadFile("migrations/001_initial_schema.sql")
	if err != nil {
		// Try alternative path for when running from different directory
		migrationSQL, err = os.ReadFile("/app/migrations/001_initial_schema.sql")
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}
	}

	_, err = db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}
