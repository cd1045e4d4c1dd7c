package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pharmapos/m/internal/api"
	"pharmapos/m/internal/config"
	"pharmapos/m/internal/database"
	"pharmapos/m/internal/logging"
	"pharmapos/m/internal/migrations"
	"pharmapos/m/internal/repository"
	"pharmapos/m/internal/sales"
	"pharmapos/m/internal/scheduler"
	"pharmapos/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	phone, err := regexp.Compile(cfg.PhonePattern)
	if err != nil {
		log.Fatalf("invalid PHONE_PATTERN: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logging.Error("Failed to connect to database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		logging.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := repository.New(db, cfg.LowStockThreshold)
	if _, err := seed.LoadDrugs(ctx, db, cfg.CatalogPath, cfg.CatalogEncoding); err != nil {
		logging.Error("Failed to seed drug catalogue", "error", err)
		os.Exit(1)
	}
	if _, err := seed.EnsureAdmin(ctx, repo, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logging.Error("Failed to create bootstrap admin", "error", err)
		os.Exit(1)
	}

	coord := sales.NewCoordinator(repo, sales.Options{
		MaxAttempts: cfg.SaleMaxAttempts,
		Timeout:     cfg.DBTimeout,
	})
	handler := api.New(repo, coord, api.Options{
		Secret:         cfg.Secret,
		TokenTTL:       cfg.TokenTTL,
		PhonePattern:   phone,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRate:  cfg.RateLimitRate,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
	})

	monitor := scheduler.NewStockMonitor(repo, cfg.StockCheckInterval)
	if err := monitor.Every(30*time.Minute, "rate limiter pruning", handler.Limiter().Prune); err != nil {
		logging.Error("Failed to schedule jobs", "error", err)
		os.Exit(1)
	}
	if err := monitor.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer monitor.Stop()

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logging.Info("Pharmacy POS server starting", "port", cfg.HTTPPort, "driver", cfg.DatabaseDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logging.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
		}
	} else {
		logging.Info("Server exited gracefully")
	}
}
