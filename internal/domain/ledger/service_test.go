package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
)

type auditEntry struct {
	action  string
	eventID id.ID
	changes map[string]any
}

type memAudit struct {
	entries []auditEntry
}

func (a *memAudit) LogEventChange(ctx context.Context, action string, eventID id.ID, changes map[string]any) error {
	a.entries = append(a.entries, auditEntry{action: action, eventID: eventID, changes: changes})
	return nil
}

func testService(t *testing.T, today string) (*Service, *memEventStore, *memBalanceStore, *memAudit) {
	t.Helper()
	events := newMemEventStore()
	balances := newMemBalanceStore()
	txm := newMemTxManager(balances)
	engine := NewEngine(events, balances, txm)
	audit := &memAudit{}

	clock := d(today).Time().Add(10 * time.Hour)
	svc := NewService(events, engine, audit, txm, func() time.Time { return clock })
	return svc, events, balances, audit
}

func TestRecordEventsRecalculatesThroughToday(t *testing.T) {
	svc, _, balances, audit := testService(t, "2024-03-05")
	ctx := context.Background()
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	result, err := svc.RecordEvents(ctx, []Event{
		*NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.DaysProcessed, "event day through today inclusive")

	assert.Equal(t, types.Quantity(1), getRow(t, balances, unit, d("2024-03-01")).Closing)
	assert.Equal(t, types.Quantity(1), getRow(t, balances, unit, d("2024-03-05")).Closing)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "create", audit.entries[0].action)
}

func TestRecordEventsRejectsWholeBatchOnValidationError(t *testing.T) {
	svc, events, balances, _ := testService(t, "2024-03-05")
	ctx := context.Background()

	batch := []Event{
		*NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
		*NewEvent(d("2024-03-02"), locA, modelX, serial1, KindSale, 0),
	}

	_, err := svc.RecordEvents(ctx, batch)
	require.Error(t, err)

	stored, err := events.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored, "nothing written on batch rejection")
	assert.Empty(t, balances.snapshot())
}

func TestRecordEventsRejectsEmptyBatch(t *testing.T) {
	svc, _, _, _ := testService(t, "2024-03-05")

	_, err := svc.RecordEvents(context.Background(), nil)
	require.Error(t, err)
}

func TestRecordEventsForwardDatedEvent(t *testing.T) {
	svc, _, balances, _ := testService(t, "2024-03-05")
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	// Dated after today: the cascade still covers the event's own day.
	_, err := svc.RecordEvents(context.Background(), []Event{
		*NewEvent(d("2024-03-08"), locA, modelX, serial1, KindIntake, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(1), getRow(t, balances, unit, d("2024-03-08")).Closing)
}

func TestUpdateEventRewritesBothUnits(t *testing.T) {
	svc, _, balances, audit := testService(t, "2024-03-03")
	ctx := context.Background()
	oldUnit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}
	newUnit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial2}

	event := NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1)
	_, err := svc.RecordEvents(ctx, []Event{*event})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(1), getRow(t, balances, oldUnit, d("2024-03-03")).Closing)

	// Correct the serial: the old unit must zero out, the new one fill.
	updated := *event
	updated.Serial = serial2
	_, err = svc.UpdateEvent(ctx, &updated)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(0), getRow(t, balances, oldUnit, d("2024-03-03")).Closing)
	assert.Equal(t, types.Quantity(1), getRow(t, balances, newUnit, d("2024-03-03")).Closing)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, "update", audit.entries[1].action)
}

func TestUpdateEventUnknownID(t *testing.T) {
	svc, _, _, _ := testService(t, "2024-03-03")

	event := NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1)
	_, err := svc.UpdateEvent(context.Background(), event)
	require.Error(t, err)
}

func TestDeleteEventZeroesBalances(t *testing.T) {
	svc, events, balances, audit := testService(t, "2024-03-03")
	ctx := context.Background()
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	event := NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1)
	_, err := svc.RecordEvents(ctx, []Event{*event})
	require.NoError(t, err)

	_, err = svc.DeleteEvent(ctx, event.ID)
	require.NoError(t, err)

	stored, err := events.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// The unit had no other events; its rows are rewritten to zero.
	assert.Equal(t, types.Quantity(0), getRow(t, balances, unit, d("2024-03-01")).Closing)
	assert.Equal(t, types.Quantity(0), getRow(t, balances, unit, d("2024-03-03")).Closing)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, "delete", audit.entries[1].action)
}

func TestRecordEventsAssignsIdentity(t *testing.T) {
	svc, events, _, _ := testService(t, "2024-03-05")
	ctx := context.Background()

	batch := []Event{{
		Date:       d("2024-03-01"),
		LocationID: locA,
		ModelID:    modelX,
		Serial:     serial1,
		Kind:       KindIntake,
		Quantity:   1,
	}}
	_, err := svc.RecordEvents(ctx, batch)
	require.NoError(t, err)

	stored, err := events.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, id.IsNil(stored[0].ID))
	assert.False(t, stored[0].CreatedAt.IsZero())
}
