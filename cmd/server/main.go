// Package main is the entry point for the imeistock API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imeistock/internal/core/types"
	"imeistock/internal/domain/catalogs/location"
	"imeistock/internal/domain/catalogs/phonemodel"
	"imeistock/internal/domain/ledger"
	v1 "imeistock/internal/infrastructure/http/v1"
	"imeistock/internal/infrastructure/storage/postgres"
	"imeistock/internal/infrastructure/storage/postgres/catalog_repo"
	"imeistock/internal/infrastructure/storage/postgres/ledger_repo"
	"imeistock/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting imeistock server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txm := postgres.NewTxManager(pool)

	// --- Audit ---
	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}
	defer audit.Close()

	// --- Ledger ---
	eventRepo := ledger_repo.NewEventRepo(txm)
	balanceRepo := ledger_repo.NewBalanceRepo(txm)
	engine := ledger.NewEngine(eventRepo, balanceRepo, txm)
	scheduler := ledger.NewScheduler(balanceRepo, txm)
	ledgerService := ledger.NewService(eventRepo, engine, audit, txm, time.Now)

	// --- Catalogs ---
	locationService := location.NewService(catalog_repo.NewLocationRepo(txm))
	modelService := phonemodel.NewService(catalog_repo.NewPhoneModelRepo(txm))

	// --- Rollover loop ---
	rolloverCtx, stopRollover := context.WithCancel(ctx)
	defer stopRollover()
	go runRolloverLoop(rolloverCtx, scheduler, getEnvDuration("ROLLOVER_INTERVAL", 15*time.Minute), log)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:          pool,
		Logger:        log,
		LedgerService: ledgerService,
		Engine:        engine,
		Scheduler:     scheduler,
		Balances:      balanceRepo,
		Audit:         audit,
		Locations:     locationService,
		PhoneModels:   modelService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopRollover()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// runRolloverLoop materializes each day's opening rows. Runs once at
// startup, then on a fixed interval; the operation is idempotent so
// the interval only bounds how stale a fresh day can be.
func runRolloverLoop(ctx context.Context, scheduler *ledger.Scheduler, interval time.Duration, log *logger.Logger) {
	run := func() {
		today := types.Today()
		if _, err := scheduler.RolloverIfNeeded(ctx, today); err != nil {
			log.Errorw("daily rollover failed", "date", today.String(), "error", err)
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
