package ledger

import (
	"context"
	"fmt"
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/internal/core/tx"
	"imeistock/internal/core/types"
	"imeistock/pkg/logger"
)

// AuditLogger records event mutations for the correction audit trail.
// Implemented by the postgres audit service.
type AuditLogger interface {
	LogEventChange(ctx context.Context, action string, eventID id.ID, changes map[string]any) error
}

// Service is the event ingestion path. Every create/update/delete of
// an event synchronously recalculates the affected unit's balances
// from the event's date through today, inside the same transaction as
// the mutation — the application-layer replacement for the source
// system's database trigger.
type Service struct {
	events EventStore
	engine *Engine
	audit  AuditLogger
	txm    tx.Manager

	// now supplies "today" for the forward cascade bound. Injected so
	// tests run against a fixed clock.
	now func() time.Time
}

// NewService creates the ledger service.
func NewService(events EventStore, engine *Engine, audit AuditLogger, txm tx.Manager, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		events: events,
		engine: engine,
		audit:  audit,
		txm:    txm,
		now:    now,
	}
}

// Today returns the current business date.
func (s *Service) Today() types.Date {
	return types.DateOf(s.now().UTC())
}

// RecordEvents appends one or more events and recalculates every
// affected serialized unit from its earliest event date through today.
// Validation failures reject the whole batch before any write.
func (s *Service) RecordEvents(ctx context.Context, events []Event) (Result, error) {
	if len(events) == 0 {
		return Result{}, apperror.NewValidation("at least one event is required")
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return Result{}, err
		}
		if id.IsNil(events[i].ID) {
			events[i].ID = id.New()
		}
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = s.now().UTC()
		}
	}

	var result Result
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.CreateEvents(ctx, events); err != nil {
			return fmt.Errorf("append events: %w", err)
		}

		for i := range events {
			e := &events[i]
			if err := s.audit.LogEventChange(ctx, "create", e.ID, map[string]any{
				"date":     e.Date.String(),
				"kind":     string(e.Kind),
				"serial":   e.Serial,
				"quantity": e.Quantity.Int64(),
			}); err != nil {
				return fmt.Errorf("audit event %s: %w", e.ID, err)
			}
		}

		r, err := s.cascade(ctx, earliestPerUnit(events))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info(ctx, "events recorded",
		"count", len(events),
		"entries_written", result.EntriesWritten,
	)
	return result, nil
}

// UpdateEvent rewrites an event and cascades from the earlier of the
// old and new dates, over both the old and new unit identities when
// they differ.
func (s *Service) UpdateEvent(ctx context.Context, event *Event) (Result, error) {
	if err := event.Validate(); err != nil {
		return Result{}, err
	}

	old, err := s.events.GetEvent(ctx, event.ID)
	if err != nil {
		return Result{}, err
	}
	if old == nil {
		return Result{}, apperror.NewNotFound("event", event.ID.String())
	}

	var result Result
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.UpdateEvent(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		if err := s.audit.LogEventChange(ctx, "update", event.ID, map[string]any{
			"old": map[string]any{
				"date": old.Date.String(), "kind": string(old.Kind),
				"serial": old.Serial, "quantity": old.Quantity.Int64(),
			},
			"new": map[string]any{
				"date": event.Date.String(), "kind": string(event.Kind),
				"serial": event.Serial, "quantity": event.Quantity.Int64(),
			},
		}); err != nil {
			return fmt.Errorf("audit event %s: %w", event.ID, err)
		}

		starts := earliestPerUnit([]Event{*old})
		for unit, date := range earliestPerUnit([]Event{*event}) {
			if existing, ok := starts[unit]; !ok || date.Before(existing) {
				starts[unit] = date
			}
		}

		r, err := s.cascade(ctx, starts)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// DeleteEvent removes an event and cascades over the unit it belonged
// to. Identity fields are captured before removal; they select the
// recalculation scope once the row no longer exists.
func (s *Service) DeleteEvent(ctx context.Context, eventID id.ID) (Result, error) {
	old, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Result{}, err
	}
	if old == nil {
		return Result{}, apperror.NewNotFound("event", eventID.String())
	}

	var result Result
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}

		if err := s.audit.LogEventChange(ctx, "delete", eventID, map[string]any{
			"date":     old.Date.String(),
			"kind":     string(old.Kind),
			"serial":   old.Serial,
			"quantity": old.Quantity.Int64(),
		}); err != nil {
			return fmt.Errorf("audit event %s: %w", eventID, err)
		}

		r, err := s.cascade(ctx, earliestPerUnit([]Event{*old}))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// GetEvent retrieves one event.
func (s *Service) GetEvent(ctx context.Context, eventID id.ID) (*Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperror.NewNotFound("event", eventID.String())
	}
	return event, nil
}

// ListEvents exposes the event store read path.
func (s *Service) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	return s.events.ListEvents(ctx, filter)
}

// cascade recalculates each affected unit from its earliest touched
// date through today. Runs inside the caller's transaction.
func (s *Service) cascade(ctx context.Context, starts map[UnitKey]types.Date) (Result, error) {
	today := s.Today()

	var total Result
	for unit, from := range starts {
		to := today
		if from.After(to) {
			// Forward-dated event: the cascade still covers the
			// event's own day.
			to = from
		}
		// Per-unit entry point: the unit may have zero remaining events
		// after a delete or move, and its rows still need rewriting.
		r, err := s.engine.RecalculateUnit(ctx, unit, from, to)
		if err != nil {
			return total, err
		}
		total.add(r)
	}
	return total, nil
}

// earliestPerUnit maps each serialized unit to the earliest event date
// in the batch. Events without a serial are bulk adjustments and do
// not participate in per-unit recalculation.
func earliestPerUnit(events []Event) map[UnitKey]types.Date {
	starts := make(map[UnitKey]types.Date)
	for i := range events {
		e := &events[i]
		if !e.Serialized() {
			continue
		}
		unit := e.Unit()
		if existing, ok := starts[unit]; !ok || e.Date.Before(existing) {
			starts[unit] = e.Date
		}
	}
	return starts
}
