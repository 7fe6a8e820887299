package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imeistock/internal/core/types"
)

func testScheduler(t *testing.T) (*Scheduler, *memBalanceStore) {
	t.Helper()
	balances := newMemBalanceStore()
	return NewScheduler(balances, newMemTxManager(balances)), balances
}

func TestRolloverCarriesClosingIntoNewDay(t *testing.T) {
	scheduler, balances := testScheduler(t)
	ctx := context.Background()
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-01"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 1, Incoming: 2, Closing: 3,
	}))

	rolled, err := scheduler.RolloverIfNeeded(ctx, d("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, rolled)

	row := getRow(t, balances, unit, d("2024-03-02"))
	assert.Equal(t, types.Quantity(3), row.Opening)
	assert.Equal(t, types.Quantity(3), row.Closing)
	assert.Zero(t, row.Incoming)
	assert.Zero(t, row.Sold)
	assert.Zero(t, row.Returned)
	assert.Zero(t, row.NetAdjustment)
}

func TestRolloverIsIdempotent(t *testing.T) {
	scheduler, balances := testScheduler(t)
	ctx := context.Background()

	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-01"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Closing: 3,
	}))

	rolled, err := scheduler.RolloverIfNeeded(ctx, d("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, rolled)

	rolled, err = scheduler.RolloverIfNeeded(ctx, d("2024-03-02"))
	require.NoError(t, err)
	assert.Zero(t, rolled)
}

func TestRolloverNeverOverwritesExistingRow(t *testing.T) {
	scheduler, balances := testScheduler(t)
	ctx := context.Background()
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-01"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Closing: 3,
	}))
	// An engine-written row for the new day already exists.
	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-02"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 3, Sold: 1, Closing: 2,
	}))

	rolled, err := scheduler.RolloverIfNeeded(ctx, d("2024-03-02"))
	require.NoError(t, err)
	assert.Zero(t, rolled)

	row := getRow(t, balances, unit, d("2024-03-02"))
	assert.Equal(t, types.Quantity(2), row.Closing, "engine row preserved")
}

func TestRolloverWithNoPriorRowsIsNoOp(t *testing.T) {
	scheduler, _ := testScheduler(t)

	rolled, err := scheduler.RolloverIfNeeded(context.Background(), d("2024-03-02"))
	require.NoError(t, err)
	assert.Zero(t, rolled)
}
