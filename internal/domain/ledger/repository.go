package ledger

import (
	"context"

	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
)

// Scope narrows a recalculation or query to a location, model, and/or
// serial. A nil field means "any".
type Scope struct {
	LocationID *id.ID
	ModelID    *id.ID
	Serial     *string
}

// UnitScope returns a scope matching exactly one unit.
func UnitScope(u UnitKey) Scope {
	loc, model, serial := u.LocationID, u.ModelID, u.Serial
	return Scope{LocationID: &loc, ModelID: &model, Serial: &serial}
}

// Matches reports whether the unit passes the scope filters.
func (s Scope) Matches(u UnitKey) bool {
	if s.LocationID != nil && *s.LocationID != u.LocationID {
		return false
	}
	if s.ModelID != nil && *s.ModelID != u.ModelID {
		return false
	}
	if s.Serial != nil && *s.Serial != u.Serial {
		return false
	}
	return true
}

// EventFilter narrows event listing.
type EventFilter struct {
	Scope    Scope
	FromDate *types.Date
	ToDate   *types.Date
	Kind     *Kind
	Limit    int
	Offset   int
}

// BalanceFilter narrows daily balance listing.
type BalanceFilter struct {
	Scope    Scope
	FromDate types.Date
	ToDate   types.Date
	Limit    int
	Offset   int
}

// EventStore is the append-only collection of stock movement events.
// Written by the ledger service, read by the recalculation engine.
type EventStore interface {
	// CreateEvents appends events to the store.
	CreateEvents(ctx context.Context, events []Event) error

	// GetEvent retrieves a single event by id.
	GetEvent(ctx context.Context, eventID id.ID) (*Event, error)

	// UpdateEvent rewrites an existing event in place.
	UpdateEvent(ctx context.Context, event *Event) error

	// DeleteEvent removes an event. Callers capture identity fields
	// before calling; they are needed for the recalculation scope
	// after the row is gone.
	DeleteEvent(ctx context.Context, eventID id.ID) error

	// ListEvents returns events matching the filter, newest day first.
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)

	// DistinctUnits returns the affected-unit set: distinct
	// (location, model, serial) triples with at least one event in
	// [from, to] matching the scope, restricted to non-empty serials.
	DistinctUnits(ctx context.Context, from, to types.Date, scope Scope) ([]UnitKey, error)

	// EventsForUnit returns one unit's events in [from, to] in
	// ascending date order.
	EventsForUnit(ctx context.Context, unit UnitKey, from, to types.Date) ([]Event, error)
}

// BalanceStore holds the derived daily balance rows.
// Only the engine and the rollover scheduler write here.
type BalanceStore interface {
	// GetBalance returns the row for (unit, date), or nil if absent.
	GetBalance(ctx context.Context, unit UnitKey, date types.Date) (*DailyBalance, error)

	// UpsertBalance inserts or fully overwrites the row keyed by
	// (date, location, model, serial). Overwriting all derived fields
	// makes recalculation idempotent.
	UpsertBalance(ctx context.Context, balance *DailyBalance) error

	// InsertBalanceIfAbsent inserts the row only when no row exists
	// for its key. Used by the rollover scheduler so a concurrent
	// engine write always wins.
	InsertBalanceIfAbsent(ctx context.Context, balance *DailyBalance) (inserted bool, err error)

	// LockUnit serializes writers for one unit within the current
	// transaction. Two racing recalculations for the same unit must
	// not interleave their day-walks.
	LockUnit(ctx context.Context, unit UnitKey) error

	// ListBalances returns rows matching the filter ordered by
	// (serial, date).
	ListBalances(ctx context.Context, filter BalanceFilter) ([]DailyBalance, error)

	// RolloverCandidates returns the previous day's rows for units
	// that have a row on prev but none on day.
	RolloverCandidates(ctx context.Context, prev, day types.Date) ([]DailyBalance, error)
}
