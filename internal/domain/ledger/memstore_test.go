package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
)

// In-memory stores for engine and service tests.

type memEventStore struct {
	mu     sync.Mutex
	events []Event
}

func newMemEventStore() *memEventStore {
	return &memEventStore{}
}

func (s *memEventStore) CreateEvents(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memEventStore) GetEvent(ctx context.Context, eventID id.ID) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *memEventStore) UpdateEvent(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == event.ID {
			s.events[i] = *event
			return nil
		}
	}
	return fmt.Errorf("event %s not found", event.ID)
}

func (s *memEventStore) DeleteEvent(ctx context.Context, eventID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == eventID {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %s not found", eventID)
}

func (s *memEventStore) ListEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if !filter.Scope.Matches(e.Unit()) {
			continue
		}
		if filter.FromDate != nil && e.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && e.Date.After(*filter.ToDate) {
			continue
		}
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	return out, nil
}

func (s *memEventStore) DistinctUnits(ctx context.Context, from, to types.Date, scope Scope) ([]UnitKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[UnitKey]bool)
	var units []UnitKey
	for _, e := range s.events {
		if e.Serial == "" {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		unit := e.Unit()
		if !scope.Matches(unit) || seen[unit] {
			continue
		}
		seen[unit] = true
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].String() < units[j].String() })
	return units, nil
}

func (s *memEventStore) EventsForUnit(ctx context.Context, unit UnitKey, from, to types.Date) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Unit() != unit {
			continue
		}
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type balanceKey struct {
	date types.Date
	unit UnitKey
}

type memBalanceStore struct {
	mu   sync.Mutex
	rows map[balanceKey]DailyBalance

	// failUpsertOn aborts the matching upsert, to exercise per-unit
	// failure isolation.
	failUpsertOn func(b *DailyBalance) bool

	lockCalls int
}

func newMemBalanceStore() *memBalanceStore {
	return &memBalanceStore{rows: make(map[balanceKey]DailyBalance)}
}

func (s *memBalanceStore) key(unit UnitKey, date types.Date) balanceKey {
	return balanceKey{date: date, unit: unit}
}

func (s *memBalanceStore) GetBalance(ctx context.Context, unit UnitKey, date types.Date) (*DailyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[s.key(unit, date)]; ok {
		return &row, nil
	}
	return nil, nil
}

func (s *memBalanceStore) UpsertBalance(ctx context.Context, balance *DailyBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsertOn != nil && s.failUpsertOn(balance) {
		return fmt.Errorf("simulated write failure")
	}
	s.rows[s.key(balance.Unit(), balance.Date)] = *balance
	return nil
}

func (s *memBalanceStore) InsertBalanceIfAbsent(ctx context.Context, balance *DailyBalance) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(balance.Unit(), balance.Date)
	if _, ok := s.rows[k]; ok {
		return false, nil
	}
	s.rows[k] = *balance
	return true, nil
}

func (s *memBalanceStore) LockUnit(ctx context.Context, unit UnitKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockCalls++
	return nil
}

func (s *memBalanceStore) ListBalances(ctx context.Context, filter BalanceFilter) ([]DailyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DailyBalance
	for _, row := range s.rows {
		if !filter.Scope.Matches(row.Unit()) {
			continue
		}
		if row.Date.Before(filter.FromDate) || row.Date.After(filter.ToDate) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Serial != out[j].Serial {
			return out[i].Serial < out[j].Serial
		}
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID.String() < out[j].LocationID.String()
		}
		return out[i].ModelID.String() < out[j].ModelID.String()
	})
	return out, nil
}

func (s *memBalanceStore) RolloverCandidates(ctx context.Context, prev, day types.Date) ([]DailyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DailyBalance
	for k, row := range s.rows {
		if k.date != prev {
			continue
		}
		if _, exists := s.rows[s.key(k.unit, day)]; exists {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit().String() < out[j].Unit().String() })
	return out, nil
}

func (s *memBalanceStore) snapshot() map[balanceKey]DailyBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[balanceKey]DailyBalance, len(s.rows))
	for k, v := range s.rows {
		copied[k] = v
	}
	return copied
}

func (s *memBalanceStore) restore(snap map[balanceKey]DailyBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = snap
}

// memTxManager mimics transactional semantics for the balance store:
// writes made inside a failed function are rolled back. Nested calls
// reuse the outer transaction like the real manager.
type memTxManager struct {
	balances *memBalanceStore
	depth    int
}

func newMemTxManager(balances *memBalanceStore) *memTxManager {
	return &memTxManager{balances: balances}
}

func (m *memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.depth > 0 {
		return fn(ctx)
	}

	m.depth++
	defer func() { m.depth-- }()

	var snap map[balanceKey]DailyBalance
	if m.balances != nil {
		snap = m.balances.snapshot()
	}
	if err := fn(ctx); err != nil {
		if m.balances != nil {
			m.balances.restore(snap)
		}
		return err
	}
	return nil
}
