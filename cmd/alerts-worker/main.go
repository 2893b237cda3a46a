package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/backend"
	"tally/internal/config"
	"tally/internal/insights"
	"tally/internal/log"
	"tally/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentWorker
	logger := log.New(logCfg)
	log.SetDefault(logger)

	logger.Info("Starting alerts-worker")

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

	// Alerts and reports leave this process through the queue; without it
	// there is nothing to do.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	var insightGen services.InsightGenerator
	if cfg.GeminiAPIKey != "" {
		insightGen = insights.NewGeminiClient(cfg.GeminiAPIKey)
	} else {
		insightGen = insights.Fallback{}
		logger.Info("Insight generation disabled - reports use canned insights")
	}

	checker := services.NewBudgetChecker(store, amqpClient)
	reporter := services.NewMonthlyReporter(store, amqpClient, insightGen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(cfg.BudgetInterval)
		defer ticker.Stop()

		if _, err := checker.CheckAll(gctx, time.Now()); err != nil {
			logger.Error("Initial budget check failed", "error", err)
		}
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case now := <-ticker.C:
				if _, err := checker.CheckAll(gctx, now); err != nil {
					logger.Error("Budget check failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		// The report log dedups, so checking often is harmless; each owner
		// still gets at most one report per month.
		ticker := time.NewTicker(cfg.ReportInterval)
		defer ticker.Stop()

		if _, err := reporter.Run(gctx, time.Now()); err != nil {
			logger.Error("Initial report run failed", "error", err)
		}
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case now := <-ticker.C:
				if _, err := reporter.Run(gctx, now); err != nil {
					logger.Error("Report run failed", "error", err)
				}
			}
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Alerts-worker shutdown complete")
}
