// Package main is a maintenance CLI that rebuilds daily balances for a
// date range, optionally narrowed to a location, model, or serial.
// Intended for backfills and repair after bulk data loads.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
	"imeistock/internal/domain/ledger"
	"imeistock/internal/infrastructure/storage/postgres"
	"imeistock/internal/infrastructure/storage/postgres/ledger_repo"
	"imeistock/pkg/logger"
)

func main() {
	var (
		fromFlag     = flag.String("from", "", "start date (YYYY-MM-DD, required)")
		toFlag       = flag.String("to", "", "end date (YYYY-MM-DD, defaults to today)")
		locationFlag = flag.String("location", "", "restrict to one location id")
		modelFlag    = flag.String("model", "", "restrict to one model id")
		serialFlag   = flag.String("serial", "", "restrict to one serial")
		verifyFlag   = flag.Bool("verify", false, "verify chain continuity after recalculation")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if *fromFlag == "" {
		log.Fatal("-from is required")
	}
	from, err := types.ParseDate(*fromFlag)
	if err != nil {
		log.Fatalw("invalid -from date", "value", *fromFlag, "error", err)
	}

	to := types.Today()
	if *toFlag != "" {
		to, err = types.ParseDate(*toFlag)
		if err != nil {
			log.Fatalw("invalid -to date", "value", *toFlag, "error", err)
		}
	}

	scope, err := buildScope(*locationFlag, *modelFlag, *serialFlag)
	if err != nil {
		log.Fatalw("invalid scope", "error", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	eventRepo := ledger_repo.NewEventRepo(txm)
	balanceRepo := ledger_repo.NewBalanceRepo(txm)
	engine := ledger.NewEngine(eventRepo, balanceRepo, txm)

	started := time.Now()
	result, err := engine.Recalculate(ctx, from, to, scope)
	if err != nil {
		// Partial results are still reported: each failed unit rolled
		// back independently.
		log.Errorw("recalculation finished with unit errors",
			"days_processed", result.DaysProcessed,
			"entries_written", result.EntriesWritten,
			"error", err,
		)
		os.Exit(1)
	}

	log.Infow("recalculation complete",
		"from", from.String(),
		"to", to.String(),
		"days_processed", result.DaysProcessed,
		"entries_written", result.EntriesWritten,
		"elapsed", time.Since(started).String(),
	)

	if *verifyFlag {
		breaks, err := engine.VerifyChain(ctx, from, to, scope)
		if err != nil {
			log.Fatalw("chain verification failed", "error", err)
		}
		if len(breaks) > 0 {
			for _, b := range breaks {
				log.Errorw("chain break", "unit", b.Unit.String(), "error", b.Err())
			}
			os.Exit(1)
		}
		log.Info("chain verified: no breaks")
	}
}

func buildScope(locationID, modelID, serial string) (ledger.Scope, error) {
	var scope ledger.Scope
	if locationID != "" {
		loc, err := id.Parse(locationID)
		if err != nil {
			return scope, fmt.Errorf("parse location id: %w", err)
		}
		scope.LocationID = &loc
	}
	if modelID != "" {
		model, err := id.Parse(modelID)
		if err != nil {
			return scope, fmt.Errorf("parse model id: %w", err)
		}
		scope.ModelID = &model
	}
	if serial != "" {
		scope.Serial = &serial
	}
	return scope, nil
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
