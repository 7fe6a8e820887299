package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/tx"
	"imeistock/internal/core/types"
	"imeistock/pkg/logger"
)

var tracer = otel.Tracer("imeistock/ledger")

// Result reports what a recalculation did.
type Result struct {
	// DaysProcessed counts distinct (unit, day) iterations.
	DaysProcessed int `json:"daysProcessed"`
	// EntriesWritten counts daily balance rows committed.
	EntriesWritten int `json:"entriesWritten"`
}

func (r *Result) add(other Result) {
	r.DaysProcessed += other.DaysProcessed
	r.EntriesWritten += other.EntriesWritten
}

// Engine recomputes daily balances from the event history.
//
// The algorithm is a forward day-walk per affected unit: each day's
// opening comes from the previous day's closing (one-day lookback,
// never further), same-day events are aggregated by kind, and the
// resulting row is idempotently upserted. Retroactive corrections
// therefore ripple forward from the corrected day to the end of the
// requested range.
type Engine struct {
	events   EventStore
	balances BalanceStore
	txm      tx.Manager
}

// NewEngine creates a recalculation engine.
func NewEngine(events EventStore, balances BalanceStore, txm tx.Manager) *Engine {
	return &Engine{
		events:   events,
		balances: balances,
		txm:      txm,
	}
}

// Recalculate rebuilds the daily balance rows for every unit that has
// at least one event in [from, to] matching the scope.
//
// Each unit is processed in its own transaction under a unit-scoped
// lock; a failure on one unit does not roll back or abort sibling
// units. Per-unit failures are accumulated and returned joined, each
// carrying the unit identity and failing date for a targeted re-run.
func (e *Engine) Recalculate(ctx context.Context, from, to types.Date, scope Scope) (Result, error) {
	if from.After(to) {
		return Result{}, apperror.NewInvalidRange(from.String(), to.String())
	}

	ctx, span := tracer.Start(ctx, "ledger.recalculate",
		trace.WithAttributes(
			attribute.String("from", from.String()),
			attribute.String("to", to.String()),
		))
	defer span.End()

	units, err := e.events.DistinctUnits(ctx, from, to, scope)
	if err != nil {
		return Result{}, fmt.Errorf("resolve affected units: %w", err)
	}

	var total Result
	var unitErrs []error
	for _, unit := range units {
		unitResult, err := e.recalculateUnit(ctx, unit, from, to)
		if err != nil {
			// Sibling units keep processing; the failed unit's
			// transaction has rolled back and contributes no rows.
			unitErrs = append(unitErrs, err)
			logger.Error(ctx, "unit recalculation failed",
				"unit", unit.String(),
				"error", err,
			)
			continue
		}
		total.add(unitResult)
	}

	span.SetAttributes(
		attribute.Int("units", len(units)),
		attribute.Int("entries_written", total.EntriesWritten),
	)

	if len(unitErrs) > 0 {
		return total, errors.Join(unitErrs...)
	}
	return total, nil
}

// RecalculateUnit rebuilds one unit's rows for [from, to] whether or
// not any events remain in the window. Deletions and unit moves leave
// a unit with zero events; the day-walk then rewrites its rows from
// the inherited opening alone, zeroing out stale aggregates.
func (e *Engine) RecalculateUnit(ctx context.Context, unit UnitKey, from, to types.Date) (Result, error) {
	if from.After(to) {
		return Result{}, apperror.NewInvalidRange(from.String(), to.String())
	}
	return e.recalculateUnit(ctx, unit, from, to)
}

// recalculateUnit walks one unit's days in ascending order inside a
// single transaction, so a reader never observes a half-updated chain.
func (e *Engine) recalculateUnit(ctx context.Context, unit UnitKey, from, to types.Date) (Result, error) {
	var result Result

	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := e.balances.LockUnit(ctx, unit); err != nil {
			return fmt.Errorf("lock unit %s: %w", unit, err)
		}

		events, err := e.events.EventsForUnit(ctx, unit, from, to)
		if err != nil {
			return fmt.Errorf("load events for %s: %w", unit, err)
		}
		byDay := groupByDay(events)

		opening, seeded, err := e.seedOpening(ctx, unit, from)
		if err != nil {
			return err
		}

		carry := opening
		for day := from; !day.After(to); day = day.Next() {
			totals := AggregateDay(byDay[day])

			dayOpening := carry
			if day != from || !seeded {
				// Morning corrections adjust the inherited opening
				// before the same-day aggregates apply. On a seeded
				// first day the stored opening already includes them.
				dayOpening += totals.MorningCorrection
			}

			row := DailyBalance{
				Date:          day,
				LocationID:    unit.LocationID,
				ModelID:       unit.ModelID,
				Serial:        unit.Serial,
				Opening:       dayOpening,
				Incoming:      totals.Incoming,
				Sold:          totals.Sold,
				Returned:      totals.Returned,
				NetAdjustment: totals.NetAdjustment,
				UpdatedAt:     time.Now().UTC(),
			}
			row.Closing = row.ComputeClosing()

			result.DaysProcessed++
			if err := e.balances.UpsertBalance(ctx, &row); err != nil {
				// Abort this unit's remaining days; the caller gets
				// enough identity to retry just this unit/day.
				return apperror.NewWriteFailure(
					unit.Serial,
					unit.LocationID.String(),
					unit.ModelID.String(),
					day.String(),
					err,
				)
			}
			result.EntriesWritten++

			carry = row.Closing
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// seedOpening determines the first window day's inherited opening.
//
// Preference order: the previous day's closing (the normal chained
// case, so a fresh morning correction is applied on top of it), then
// an existing stored row for the first day (its opening already
// reflects corrections applied by an earlier run, so it is taken
// as-is; seeded=true tells the caller not to reapply them), then zero
// for a unit with no history.
func (e *Engine) seedOpening(ctx context.Context, unit UnitKey, from types.Date) (types.Quantity, bool, error) {
	prev, err := e.balances.GetBalance(ctx, unit, from.Prev())
	if err != nil {
		return 0, false, fmt.Errorf("read prior day balance for %s: %w", unit, err)
	}
	if prev != nil {
		return prev.Closing, false, nil
	}

	existing, err := e.balances.GetBalance(ctx, unit, from)
	if err != nil {
		return 0, false, fmt.Errorf("read first day balance for %s: %w", unit, err)
	}
	if existing != nil {
		return existing.Opening, true, nil
	}

	return 0, false, nil
}

// groupByDay buckets a unit's events by calendar day.
func groupByDay(events []Event) map[types.Date][]Event {
	byDay := make(map[types.Date][]Event, len(events))
	for _, e := range events {
		byDay[e.Date] = append(byDay[e.Date], e)
	}
	return byDay
}

// ChainBreak describes one violated continuity invariant:
// closing[d] != opening[d+1] with no morning correction on d+1.
type ChainBreak struct {
	Unit        UnitKey    `json:"unit"`
	Date        types.Date `json:"date"`
	Closing     int64      `json:"closing"`
	NextOpening int64      `json:"nextOpening"`
}

// Err converts the break into its reportable error form.
func (b ChainBreak) Err() *apperror.AppError {
	return apperror.NewOrderingViolation(b.Unit.Serial, b.Date.String(), b.Closing, b.NextOpening).
		WithDetail("location_id", b.Unit.LocationID.String()).
		WithDetail("model_id", b.Unit.ModelID.String())
}

// VerifyChain walks the stored rows for every unit in scope and
// reports continuity violations. A break on a day that was not the
// subject of a correction indicates caller or data corruption; it is
// reported loudly, never silently overwritten.
func (e *Engine) VerifyChain(ctx context.Context, from, to types.Date, scope Scope) ([]ChainBreak, error) {
	if from.After(to) {
		return nil, apperror.NewInvalidRange(from.String(), to.String())
	}

	rows, err := e.balances.ListBalances(ctx, BalanceFilter{
		Scope:    scope,
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}

	// Rows are ordered by (serial, date), so units sharing a serial at
	// different locations interleave by date. Pairing is per unit, not
	// per adjacent row.
	var breaks []ChainBreak
	last := make(map[UnitKey]*DailyBalance)
	for i := range rows {
		row := &rows[i]
		unit := row.Unit()
		if prev, ok := last[unit]; ok && prev.Date.Next() == row.Date && prev.Closing != row.Opening {
			corrected, err := e.hasMorningCorrection(ctx, unit, row.Date)
			if err != nil {
				return nil, err
			}
			if !corrected {
				breaks = append(breaks, ChainBreak{
					Unit:        unit,
					Date:        prev.Date,
					Closing:     prev.Closing.Int64(),
					NextOpening: row.Opening.Int64(),
				})
			}
		}
		last[unit] = row
	}

	if len(breaks) > 0 {
		logger.Warn(ctx, "balance chain verification found breaks",
			"count", len(breaks),
			"from", from.String(),
			"to", to.String(),
		)
	}
	return breaks, nil
}

func (e *Engine) hasMorningCorrection(ctx context.Context, unit UnitKey, day types.Date) (bool, error) {
	events, err := e.events.EventsForUnit(ctx, unit, day, day)
	if err != nil {
		return false, fmt.Errorf("load events for %s: %w", unit, err)
	}
	for i := range events {
		if events[i].Kind == KindMorningCorrection {
			return true, nil
		}
	}
	return false, nil
}
