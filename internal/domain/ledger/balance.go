package ledger

import (
	"fmt"
	"time"

	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
)

// UnitKey identifies one physical unit while it is in custody:
// (location, model, serial). The same serial can reappear after a sale
// through returns, so the full triple is the identity.
type UnitKey struct {
	LocationID id.ID  `db:"location_id" json:"locationId"`
	ModelID    id.ID  `db:"model_id" json:"modelId"`
	Serial     string `db:"serial" json:"serial"`
}

// String renders the key for logs and error details.
func (u UnitKey) String() string {
	return fmt.Sprintf("%s@%s/%s", u.Serial, u.LocationID, u.ModelID)
}

// DailyBalance is the derived per-unit stock row for one calendar day.
// Rows are entirely engine-owned: created, overwritten, or left
// untouched only by the recalculation engine and the rollover
// scheduler.
type DailyBalance struct {
	Date       types.Date `db:"balance_date" json:"date"`
	LocationID id.ID      `db:"location_id" json:"locationId"`
	ModelID    id.ID      `db:"model_id" json:"modelId"`
	Serial     string     `db:"serial" json:"serial"`

	// Opening is the morning stock: previous day's closing, or an
	// explicit morning correction applied to it.
	Opening types.Quantity `db:"opening" json:"opening"`

	// Same-day aggregates by event kind.
	Incoming      types.Quantity `db:"incoming" json:"incoming"`
	Sold          types.Quantity `db:"sold" json:"sold"`
	Returned      types.Quantity `db:"returned" json:"returned"`
	NetAdjustment types.Quantity `db:"net_adjustment" json:"netAdjustment"`

	// Closing is the night stock:
	// opening + incoming + returned - sold + net_adjustment.
	Closing types.Quantity `db:"closing" json:"closing"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Unit returns the unit identity of the row.
func (b *DailyBalance) Unit() UnitKey {
	return UnitKey{LocationID: b.LocationID, ModelID: b.ModelID, Serial: b.Serial}
}

// ComputeClosing derives the closing balance from opening and the
// same-day aggregates.
func (b *DailyBalance) ComputeClosing() types.Quantity {
	return b.Opening + b.Incoming + b.Returned - b.Sold + b.NetAdjustment
}

// DayTotals is the aggregation of one unit's events on one day.
type DayTotals struct {
	Incoming      types.Quantity
	Sold          types.Quantity
	Returned      types.Quantity
	NetAdjustment types.Quantity

	// MorningCorrection is the summed signed delta applied to the
	// inherited opening. Excluded from NetAdjustment.
	MorningCorrection types.Quantity
}

// AggregateDay folds a day's events into totals.
//
// Receipt-like kinds add to their aggregate; return-out and
// transfer-out enter net_adjustment as negative, transfer-in as
// positive, and the mid-day correction keeps its sign.
func AggregateDay(events []Event) DayTotals {
	var t DayTotals
	for i := range events {
		e := &events[i]
		switch e.Kind {
		case KindIntake:
			t.Incoming += e.Quantity
		case KindSale:
			t.Sold += e.Quantity
		case KindReturnIn:
			t.Returned += e.Quantity
		case KindReturnOut, KindTransferOut:
			t.NetAdjustment -= e.Quantity
		case KindTransferIn:
			t.NetAdjustment += e.Quantity
		case KindMidDayCorrection:
			t.NetAdjustment += e.Quantity
		case KindMorningCorrection:
			t.MorningCorrection += e.Quantity
		}
	}
	return t
}
