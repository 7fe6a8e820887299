// Package ledger_repo provides PostgreSQL implementations for the
// ledger event and daily balance stores.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
	"imeistock/internal/domain/ledger"
	"imeistock/internal/infrastructure/storage/postgres"
)

const eventsTable = "stock_events"

var eventColumns = []string{
	"id", "event_date", "location_id", "model_id", "serial",
	"kind", "quantity", "unit_price", "notes", "metadata", "created_at",
}

// copyBatchSize is the batch size above which inserts switch to COPY.
const copyBatchSize = 50

// EventRepo implements ledger.EventStore.
type EventRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewEventRepo creates a new event store repository.
func NewEventRepo(txm *postgres.TxManager) *EventRepo {
	return &EventRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateEvents appends events to the store.
func (r *EventRepo) CreateEvents(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Fast path: COPY for large batches inside a transaction.
	if len(events) >= copyBatchSize && r.txm.GetTx(ctx) != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(events))
		for i := range events {
			e := &events[i]
			rows = append(rows, []any{
				e.ID, e.Date, e.LocationID, e.ModelID, e.Serial,
				string(e.Kind), e.Quantity, e.UnitPrice, e.Notes, e.Metadata, e.CreatedAt,
			})
		}
		if _, err := inserter.CopyInto(ctx, eventsTable, eventColumns, rows); err != nil {
			return fmt.Errorf("copy events: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(eventsTable).Columns(eventColumns...)
	for i := range events {
		e := &events[i]
		q = q.Values(
			e.ID, e.Date, e.LocationID, e.ModelID, e.Serial,
			string(e.Kind), e.Quantity, e.UnitPrice, e.Notes, e.Metadata, e.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	return nil
}

// GetEvent retrieves a single event, or nil when absent.
func (r *EventRepo) GetEvent(ctx context.Context, eventID id.ID) (*ledger.Event, error) {
	q := r.builder.Select(eventColumns...).
		From(eventsTable).
		Where(squirrel.Eq{"id": eventID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var event ledger.Event
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &event, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// UpdateEvent rewrites an existing event in place.
func (r *EventRepo) UpdateEvent(ctx context.Context, event *ledger.Event) error {
	q := r.builder.Update(eventsTable).
		Set("event_date", event.Date).
		Set("location_id", event.LocationID).
		Set("model_id", event.ModelID).
		Set("serial", event.Serial).
		Set("kind", string(event.Kind)).
		Set("quantity", event.Quantity).
		Set("unit_price", event.UnitPrice).
		Set("notes", event.Notes).
		Set("metadata", event.Metadata).
		Where(squirrel.Eq{"id": event.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event %s: no rows affected", event.ID)
	}
	return nil
}

// DeleteEvent removes an event.
func (r *EventRepo) DeleteEvent(ctx context.Context, eventID id.ID) error {
	q := r.builder.Delete(eventsTable).Where(squirrel.Eq{"id": eventID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete event %s: no rows affected", eventID)
	}
	return nil
}

// ListEvents returns events matching the filter, newest day first.
func (r *EventRepo) ListEvents(ctx context.Context, filter ledger.EventFilter) ([]ledger.Event, error) {
	q := r.builder.Select(eventColumns...).From(eventsTable)
	q = applyScope(q, filter.Scope)

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"event_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"event_date": *filter.ToDate})
	}
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": string(*filter.Kind)})
	}

	q = q.OrderBy("event_date DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var events []ledger.Event
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &events, sql, args...); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return events, nil
}

// DistinctUnits returns the affected-unit set for [from, to],
// restricted to serialized events.
func (r *EventRepo) DistinctUnits(ctx context.Context, from, to types.Date, scope ledger.Scope) ([]ledger.UnitKey, error) {
	q := r.builder.Select("location_id", "model_id", "serial").
		Distinct().
		From(eventsTable).
		Where(squirrel.GtOrEq{"event_date": from}).
		Where(squirrel.LtOrEq{"event_date": to}).
		Where(squirrel.NotEq{"serial": ""})
	q = applyScope(q, scope)
	q = q.OrderBy("location_id", "model_id", "serial")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var units []ledger.UnitKey
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &units, sql, args...); err != nil {
		return nil, fmt.Errorf("select distinct units: %w", err)
	}
	return units, nil
}

// EventsForUnit returns one unit's events in [from, to] in ascending
// date order.
func (r *EventRepo) EventsForUnit(ctx context.Context, unit ledger.UnitKey, from, to types.Date) ([]ledger.Event, error) {
	q := r.builder.Select(eventColumns...).
		From(eventsTable).
		Where(squirrel.Eq{
			"location_id": unit.LocationID,
			"model_id":    unit.ModelID,
			"serial":      unit.Serial,
		}).
		Where(squirrel.GtOrEq{"event_date": from}).
		Where(squirrel.LtOrEq{"event_date": to}).
		OrderBy("event_date", "created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var events []ledger.Event
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &events, sql, args...); err != nil {
		return nil, fmt.Errorf("select unit events: %w", err)
	}
	return events, nil
}

// applyScope adds the optional dimension filters to a select.
func applyScope(q squirrel.SelectBuilder, scope ledger.Scope) squirrel.SelectBuilder {
	if scope.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *scope.LocationID})
	}
	if scope.ModelID != nil {
		q = q.Where(squirrel.Eq{"model_id": *scope.ModelID})
	}
	if scope.Serial != nil {
		q = q.Where(squirrel.Eq{"serial": *scope.Serial})
	}
	return q
}

// Ensure interface compliance.
var _ ledger.EventStore = (*EventRepo)(nil)
