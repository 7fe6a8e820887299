package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
)

var (
	locA   = id.MustParse("0189f1e0-0000-7000-8000-000000000001")
	locB   = id.MustParse("0189f1e0-0000-7000-8000-000000000002")
	modelX = id.MustParse("0189f1e0-0000-7000-8000-0000000000aa")

	serial1 = "356938035643809"
	serial2 = "356938035643810"
)

func d(s string) types.Date {
	return types.MustParseDate(s)
}

func testEngine(t *testing.T) (*Engine, *memEventStore, *memBalanceStore) {
	t.Helper()
	events := newMemEventStore()
	balances := newMemBalanceStore()
	txm := newMemTxManager(balances)
	return NewEngine(events, balances, txm), events, balances
}

func seedEvents(t *testing.T, store *memEventStore, events ...*Event) {
	t.Helper()
	batch := make([]Event, 0, len(events))
	for _, e := range events {
		batch = append(batch, *e)
	}
	require.NoError(t, store.CreateEvents(context.Background(), batch))
}

func getRow(t *testing.T, balances *memBalanceStore, unit UnitKey, date types.Date) *DailyBalance {
	t.Helper()
	row, err := balances.GetBalance(context.Background(), unit, date)
	require.NoError(t, err)
	require.NotNil(t, row, "expected balance row for %s on %s", unit, date)
	return row
}

func TestRecalculateChainsOpeningFromPriorClosing(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
		NewEvent(d("2024-03-03"), locA, modelX, serial1, KindSale, 1),
	)

	result, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-04"), Scope{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.DaysProcessed)
	assert.Equal(t, 4, result.EntriesWritten)

	day1 := getRow(t, balances, unit, d("2024-03-01"))
	assert.Equal(t, types.Quantity(0), day1.Opening)
	assert.Equal(t, types.Quantity(1), day1.Incoming)
	assert.Equal(t, types.Quantity(1), day1.Closing)

	day2 := getRow(t, balances, unit, d("2024-03-02"))
	assert.Equal(t, types.Quantity(1), day2.Opening)
	assert.Equal(t, types.Quantity(1), day2.Closing)

	day3 := getRow(t, balances, unit, d("2024-03-03"))
	assert.Equal(t, types.Quantity(1), day3.Opening)
	assert.Equal(t, types.Quantity(1), day3.Sold)
	assert.Equal(t, types.Quantity(0), day3.Closing)

	day4 := getRow(t, balances, unit, d("2024-03-04"))
	assert.Equal(t, types.Quantity(0), day4.Opening)
	assert.Equal(t, types.Quantity(0), day4.Closing)
}

func TestRecalculateAggregatesKindsBySign(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 2),
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindReturnIn, 1),
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindSale, 1),
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindReturnOut, 1),
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindTransferIn, 1),
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindMidDayCorrection, -1),
	)

	_, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-01"), Scope{})
	require.NoError(t, err)

	row := getRow(t, balances, unit, d("2024-03-01"))
	assert.Equal(t, types.Quantity(2), row.Incoming)
	assert.Equal(t, types.Quantity(1), row.Returned)
	assert.Equal(t, types.Quantity(1), row.Sold)
	assert.Equal(t, types.Quantity(-1), row.NetAdjustment, "return-out -1, transfer-in +1, correction -1")
	assert.Equal(t, types.Quantity(1), row.Closing)
}

func TestRecalculateRetroactiveEventRipplesForward(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
	)
	_, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-05"), Scope{})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(1), getRow(t, balances, unit, d("2024-03-05")).Closing)

	// A sale recorded late for day 2 must pull every later closing down.
	seedEvents(t, events,
		NewEvent(d("2024-03-02"), locA, modelX, serial1, KindSale, 1),
	)
	_, err = engine.Recalculate(context.Background(), d("2024-03-02"), d("2024-03-05"), Scope{})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(1), getRow(t, balances, unit, d("2024-03-01")).Closing)
	assert.Equal(t, types.Quantity(0), getRow(t, balances, unit, d("2024-03-02")).Closing)
	assert.Equal(t, types.Quantity(0), getRow(t, balances, unit, d("2024-03-03")).Closing)
	assert.Equal(t, types.Quantity(0), getRow(t, balances, unit, d("2024-03-05")).Closing)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
		NewEvent(d("2024-03-02"), locA, modelX, serial1, KindMorningCorrection, 2),
	)

	first, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-03"), Scope{})
	require.NoError(t, err)
	firstRows := balances.snapshot()

	second, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-03"), Scope{})
	require.NoError(t, err)

	assert.Equal(t, first.EntriesWritten, second.EntriesWritten)
	for k, row := range balances.snapshot() {
		prev := firstRows[k]
		assert.Equal(t, prev.Opening, row.Opening, "opening drifted for %s on %s", k.unit, k.date)
		assert.Equal(t, prev.Closing, row.Closing, "closing drifted for %s on %s", k.unit, k.date)
	}

	// The corrected day keeps its adjusted opening.
	day2 := getRow(t, balances, unit, d("2024-03-02"))
	assert.Equal(t, types.Quantity(3), day2.Opening)
	assert.Equal(t, types.Quantity(3), day2.Closing)
}

func TestRecalculateMorningCorrectionAdjustsOpeningOnly(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
		NewEvent(d("2024-03-02"), locA, modelX, serial1, KindMorningCorrection, -1),
	)

	_, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-02"), Scope{})
	require.NoError(t, err)

	day2 := getRow(t, balances, unit, d("2024-03-02"))
	assert.Equal(t, types.Quantity(0), day2.Opening, "correction folded into opening")
	assert.Equal(t, types.Quantity(0), day2.NetAdjustment, "correction excluded from net adjustment")
	assert.Equal(t, types.Quantity(0), day2.Closing)
}

func TestRecalculateSeedsFromStoredFirstDayRow(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit := UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1}

	// A stored first-day row with no prior-day neighbor: its opening is
	// authoritative (set by an earlier wider run).
	require.NoError(t, balances.UpsertBalance(context.Background(), &DailyBalance{
		Date: d("2024-03-10"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 5, Closing: 5,
	}))
	seedEvents(t, events,
		NewEvent(d("2024-03-10"), locA, modelX, serial1, KindSale, 1),
	)

	_, err := engine.Recalculate(context.Background(), d("2024-03-10"), d("2024-03-10"), Scope{})
	require.NoError(t, err)

	row := getRow(t, balances, unit, d("2024-03-10"))
	assert.Equal(t, types.Quantity(5), row.Opening)
	assert.Equal(t, types.Quantity(4), row.Closing)
}

func TestRecalculateRejectsInvertedRange(t *testing.T) {
	engine, _, balances := testEngine(t)

	_, err := engine.Recalculate(context.Background(), d("2024-03-05"), d("2024-03-01"), Scope{})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidRange(err))
	assert.Empty(t, balances.snapshot(), "no writes on rejected range")
}

func TestRecalculateHonorsScope(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit2 := UnitKey{LocationID: locB, ModelID: modelX, Serial: serial2}

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
		NewEvent(d("2024-03-01"), locB, modelX, serial2, KindIntake, 1),
	)

	_, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-01"), Scope{Serial: &serial2})
	require.NoError(t, err)

	assert.Len(t, balances.snapshot(), 1)
	getRow(t, balances, unit2, d("2024-03-01"))
}

func TestRecalculateSkipsNonSerializedEvents(t *testing.T) {
	engine, events, balances := testEngine(t)

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, "", KindIntake, 10),
	)

	result, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-01"), Scope{})
	require.NoError(t, err)
	assert.Zero(t, result.EntriesWritten)
	assert.Empty(t, balances.snapshot())
}

func TestRecalculateFailedUnitDoesNotAbortSiblings(t *testing.T) {
	engine, events, balances := testEngine(t)
	unit2 := UnitKey{LocationID: locB, ModelID: modelX, Serial: serial2}

	seedEvents(t, events,
		NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1),
		NewEvent(d("2024-03-01"), locB, modelX, serial2, KindIntake, 1),
	)
	balances.failUpsertOn = func(b *DailyBalance) bool {
		return b.Serial == serial1 && b.Date == d("2024-03-02")
	}

	result, err := engine.Recalculate(context.Background(), d("2024-03-01"), d("2024-03-02"), Scope{})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeWriteFailure, appErr.Code)
	assert.Equal(t, serial1, appErr.Details["serial"])
	assert.Equal(t, "2024-03-02", appErr.Details["date"])

	// The failed unit's partial rows rolled back; the sibling completed.
	for k := range balances.snapshot() {
		assert.Equal(t, serial2, k.unit.Serial)
	}
	assert.Equal(t, 2, result.EntriesWritten)
	getRow(t, balances, unit2, d("2024-03-02"))
}

func TestVerifyChainReportsBreaks(t *testing.T) {
	engine, _, balances := testEngine(t)
	ctx := context.Background()

	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-01"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 0, Incoming: 1, Closing: 1,
	}))
	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-02"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 3, Closing: 3,
	}))

	breaks, err := engine.VerifyChain(ctx, d("2024-03-01"), d("2024-03-02"), Scope{})
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, d("2024-03-01"), breaks[0].Date)
	assert.Equal(t, int64(1), breaks[0].Closing)
	assert.Equal(t, int64(3), breaks[0].NextOpening)
}

func TestVerifyChainSeparatesUnitsSharingSerial(t *testing.T) {
	engine, _, balances := testEngine(t)
	ctx := context.Background()

	// After a transfer the same serial has rows at both locations on the
	// same dates, interleaved in listing order. The broken chain at locA
	// must be found even though the adjacent listed row belongs to locB.
	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-01"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 0, Incoming: 1, Closing: 1,
	}))
	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-02"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 3, Closing: 3,
	}))
	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-01"), LocationID: locB, ModelID: modelX, Serial: serial1,
		Opening: 0, Closing: 0,
	}))
	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-02"), LocationID: locB, ModelID: modelX, Serial: serial1,
		Opening: 0, Closing: 0,
	}))

	breaks, err := engine.VerifyChain(ctx, d("2024-03-01"), d("2024-03-02"), Scope{})
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, locA, breaks[0].Unit.LocationID)
	assert.Equal(t, d("2024-03-01"), breaks[0].Date)
	assert.Equal(t, int64(1), breaks[0].Closing)
	assert.Equal(t, int64(3), breaks[0].NextOpening)
}

func TestChainBreakErrCarriesIdentity(t *testing.T) {
	b := ChainBreak{
		Unit:        UnitKey{LocationID: locA, ModelID: modelX, Serial: serial1},
		Date:        d("2024-03-01"),
		Closing:     1,
		NextOpening: 3,
	}

	err := b.Err()
	assert.Equal(t, apperror.CodeOrderingViolation, err.Code)
	assert.Equal(t, serial1, err.Details["serial"])
	assert.Equal(t, "2024-03-01", err.Details["date"])
	assert.Equal(t, locA.String(), err.Details["location_id"])
	assert.Equal(t, int64(1), err.Details["closing"])
	assert.Equal(t, int64(3), err.Details["next_opening"])
}

func TestVerifyChainAcceptsMorningCorrection(t *testing.T) {
	engine, events, balances := testEngine(t)
	ctx := context.Background()

	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-01"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 0, Incoming: 1, Closing: 1,
	}))
	require.NoError(t, balances.UpsertBalance(ctx, &DailyBalance{
		Date: d("2024-03-02"), LocationID: locA, ModelID: modelX, Serial: serial1,
		Opening: 3, Closing: 3,
	}))
	seedEvents(t, events,
		NewEvent(d("2024-03-02"), locA, modelX, serial1, KindMorningCorrection, 2),
	)

	breaks, err := engine.VerifyChain(ctx, d("2024-03-01"), d("2024-03-02"), Scope{})
	require.NoError(t, err)
	assert.Empty(t, breaks)
}
