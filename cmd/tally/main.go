package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"tally/internal/backend"
	"tally/internal/cache"
	"tally/internal/config"
	"tally/internal/core"
	apphttp "tally/internal/http"
	"tally/internal/insights"
	"tally/internal/log"
	"tally/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting tally server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	result, err := backend.Create(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize store backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}
	store := result.Store

	if err := seedOwner(context.Background(), store); err != nil {
		logger.Error("Failed to seed owner", "error", err)
		os.Exit(1)
	}

	var insightGen services.InsightGenerator
	if cfg.GeminiAPIKey != "" {
		insightGen = insights.NewGeminiClient(cfg.GeminiAPIKey)
		logger.Info("Insight generation enabled")
	} else {
		insightGen = insights.Fallback{}
		logger.Info("Insight generation disabled - no GEMINI_API_KEY provided")
	}

	views := cache.NewViewCache(256, 5*time.Minute)
	accounts := services.NewAccountService(store, views)
	transactions := services.NewTransactionService(store, insightGen, views)
	srv := apphttp.NewServer(":"+cfg.Port, store, accounts, transactions, apphttp.StoreAuthenticator{Store: store}, views)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Listening", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// seedOwner creates the bootstrap owner from SEED_OWNER_* env vars when the
// store has no owners yet. Without it there is no API key to call the API
// with.
func seedOwner(ctx context.Context, store services.Store) error {
	email := os.Getenv("SEED_OWNER_EMAIL")
	if email == "" {
		return nil
	}

	owners, err := store.ListOwners(ctx)
	if err != nil {
		return err
	}
	if len(owners) > 0 {
		return nil
	}

	apiKey := os.Getenv("SEED_OWNER_API_KEY")
	if apiKey == "" {
		apiKey = uuid.NewString()
	}
	owner := core.Owner{
		ID:     uuid.NewString(),
		Email:  email,
		Name:   os.Getenv("SEED_OWNER_NAME"),
		APIKey: apiKey,
	}
	if err := store.CreateOwner(ctx, owner); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Seeded bootstrap owner", "owner_id", owner.ID, "email", owner.Email)
	return nil
}
