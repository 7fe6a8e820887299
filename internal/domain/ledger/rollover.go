package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"imeistock/internal/core/tx"
	"imeistock/internal/core/types"
	"imeistock/pkg/logger"
)

// Scheduler materializes each new day's opening balance from the
// previous day's closing, so "this morning's stock" exists before any
// event is recorded for the day.
//
// It only fills days with zero events: once an event lands, the
// engine's upsert overwrites the placeholder through the same
// idempotent path. Safe to call any number of times per day.
type Scheduler struct {
	balances BalanceStore
	txm      tx.Manager
}

// NewScheduler creates a rollover scheduler.
func NewScheduler(balances BalanceStore, txm tx.Manager) *Scheduler {
	return &Scheduler{balances: balances, txm: txm}
}

// RolloverIfNeeded creates today's row for every unit that has a row
// for yesterday but none for today, with opening = closing =
// yesterday's closing and all aggregates zero. Returns the number of
// units rolled; subsequent calls on the same day are no-ops.
func (s *Scheduler) RolloverIfNeeded(ctx context.Context, today types.Date) (int, error) {
	ctx, span := tracer.Start(ctx, "ledger.rollover",
		trace.WithAttributes(attribute.String("today", today.String())))
	defer span.End()

	yesterday := today.Prev()

	candidates, err := s.balances.RolloverCandidates(ctx, yesterday, today)
	if err != nil {
		return 0, fmt.Errorf("find rollover candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	rolled := 0
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range candidates {
			prev := &candidates[i]
			row := DailyBalance{
				Date:       today,
				LocationID: prev.LocationID,
				ModelID:    prev.ModelID,
				Serial:     prev.Serial,
				Opening:    prev.Closing,
				Closing:    prev.Closing,
				UpdatedAt:  time.Now().UTC(),
			}
			// Insert-if-absent: a concurrent rollover or engine write
			// for the same unit wins and this row is skipped.
			inserted, err := s.balances.InsertBalanceIfAbsent(ctx, &row)
			if err != nil {
				return fmt.Errorf("roll unit %s: %w", prev.Unit(), err)
			}
			if inserted {
				rolled++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if rolled > 0 {
		logger.Info(ctx, "rolled daily balances forward",
			"today", today.String(),
			"units", rolled,
		)
	}
	span.SetAttributes(attribute.Int("rolled_units", rolled))
	return rolled, nil
}
