package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
)

func TestValidSerial(t *testing.T) {
	assert.True(t, ValidSerial("356938035643809"))
	assert.False(t, ValidSerial(""))
	assert.False(t, ValidSerial("35693803564380"), "14 digits")
	assert.False(t, ValidSerial("3569380356438090"), "16 digits")
	assert.False(t, ValidSerial("35693803564380a"))
}

func TestEventValidate(t *testing.T) {
	valid := func() *Event {
		return NewEvent(d("2024-03-01"), locA, modelX, serial1, KindIntake, 1)
	}

	require.NoError(t, valid().Validate())

	t.Run("unknown kind", func(t *testing.T) {
		e := valid()
		e.Kind = Kind("teleport")
		assert.Error(t, e.Validate())
	})

	t.Run("zero date", func(t *testing.T) {
		e := valid()
		e.Date = types.Date{}
		assert.Error(t, e.Validate())
	})

	t.Run("missing dimensions", func(t *testing.T) {
		e := valid()
		e.LocationID = id.Nil()
		assert.Error(t, e.Validate())
	})

	t.Run("malformed serial", func(t *testing.T) {
		e := valid()
		e.Serial = "123"
		assert.Error(t, e.Validate())
	})

	t.Run("empty serial allowed", func(t *testing.T) {
		e := valid()
		e.Serial = ""
		assert.NoError(t, e.Validate())
	})

	t.Run("non-positive quantity for unsigned kind", func(t *testing.T) {
		e := valid()
		e.Quantity = 0
		assert.Error(t, e.Validate())
		e.Quantity = -1
		assert.Error(t, e.Validate())
	})

	t.Run("negative correction allowed", func(t *testing.T) {
		e := valid()
		e.Kind = KindMorningCorrection
		e.Quantity = -2
		assert.NoError(t, e.Validate())
	})

	t.Run("zero correction rejected", func(t *testing.T) {
		e := valid()
		e.Kind = KindMidDayCorrection
		e.Quantity = 0
		assert.Error(t, e.Validate())
	})
}

func TestKindSigned(t *testing.T) {
	assert.True(t, KindMorningCorrection.Signed())
	assert.True(t, KindMidDayCorrection.Signed())
	assert.False(t, KindIntake.Signed())
	assert.False(t, KindSale.Signed())
}

func TestAggregateDay(t *testing.T) {
	events := []Event{
		{Kind: KindIntake, Quantity: 3},
		{Kind: KindSale, Quantity: 2},
		{Kind: KindReturnIn, Quantity: 1},
		{Kind: KindReturnOut, Quantity: 1},
		{Kind: KindTransferIn, Quantity: 2},
		{Kind: KindTransferOut, Quantity: 1},
		{Kind: KindMidDayCorrection, Quantity: -1},
		{Kind: KindMorningCorrection, Quantity: 5},
	}

	totals := AggregateDay(events)
	assert.EqualValues(t, 3, totals.Incoming)
	assert.EqualValues(t, 2, totals.Sold)
	assert.EqualValues(t, 1, totals.Returned)
	assert.EqualValues(t, -1, totals.NetAdjustment, "-1 return-out, +2 transfer-in, -1 transfer-out, -1 correction")
	assert.EqualValues(t, 5, totals.MorningCorrection, "kept out of net adjustment")
}

func TestComputeClosing(t *testing.T) {
	b := DailyBalance{Opening: 10, Incoming: 3, Sold: 4, Returned: 1, NetAdjustment: -2}
	assert.EqualValues(t, 8, b.ComputeClosing())
}
