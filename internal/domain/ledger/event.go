// Package ledger implements the event-sourced stock ledger for
// serialized (IMEI-tracked) phone inventory: an append-only event
// store, the daily balance recalculation engine, and the day rollover
// scheduler.
package ledger

import (
	"encoding/json"
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
)

// Kind classifies a stock movement event.
type Kind string

const (
	// KindIntake is new stock arriving at a location ("masuk").
	KindIntake Kind = "intake"
	// KindSale is a unit sold to a customer ("laku").
	KindSale Kind = "sale"
	// KindReturnIn is a sold unit coming back ("retur_in").
	KindReturnIn Kind = "return_in"
	// KindReturnOut is a unit returned to the supplier ("retur_out").
	KindReturnOut Kind = "return_out"
	// KindTransferIn is stock received from another location.
	KindTransferIn Kind = "transfer_in"
	// KindTransferOut is stock sent to another location.
	KindTransferOut Kind = "transfer_out"
	// KindMorningCorrection adjusts the day's opening balance ("koreksi_pagi").
	// Its quantity is signed and is folded into opening, not into the
	// same-day aggregates.
	KindMorningCorrection Kind = "morning_correction"
	// KindMidDayCorrection is a signed same-day adjustment ("koreksi").
	KindMidDayCorrection Kind = "midday_correction"
)

// AllKinds lists every valid event kind.
var AllKinds = []Kind{
	KindIntake, KindSale, KindReturnIn, KindReturnOut,
	KindTransferIn, KindTransferOut,
	KindMorningCorrection, KindMidDayCorrection,
}

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Signed reports whether the kind carries a signed quantity.
// Corrections may be negative; all other kinds are submitted as
// positive counts.
func (k Kind) Signed() bool {
	return k == KindMorningCorrection || k == KindMidDayCorrection
}

// SerialLength is the fixed length of a unit serial (IMEI).
const SerialLength = 15

// ValidSerial reports whether s is a well-formed 15-digit serial.
func ValidSerial(s string) bool {
	if len(s) != SerialLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Event is a single immutable stock movement record.
// Events may be inserted, edited, or deleted retroactively; every
// mutation ripples forward through the daily balances via the
// recalculation engine.
type Event struct {
	ID id.ID `db:"id" json:"id"`

	// Date is the business day of the movement. Ordering within a day
	// does not matter: same-day events are aggregated, not sequenced.
	Date types.Date `db:"event_date" json:"date"`

	// Dimensions. Location and model are opaque master-data references.
	LocationID id.ID `db:"location_id" json:"locationId"`
	ModelID    id.ID `db:"model_id" json:"modelId"`

	// Serial identifies the physical unit. May be empty for
	// non-serialized bulk adjustments; the engine skips those.
	Serial string `db:"serial" json:"serial"`

	Kind     Kind           `db:"kind" json:"kind"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitPrice is the purchase or sale price for intake/sale events.
	// Not interpreted by the engine.
	UnitPrice *types.Money `db:"unit_price" json:"unitPrice,omitempty"`

	// Notes and Metadata are opaque payload.
	Notes    string          `db:"notes" json:"notes,omitempty"`
	Metadata json.RawMessage `db:"metadata" json:"metadata,omitempty"`

	// CreatedAt is an audit timestamp. Not used in recalculation
	// ordering.
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Unit returns the unit identity the event belongs to.
func (e *Event) Unit() UnitKey {
	return UnitKey{LocationID: e.LocationID, ModelID: e.ModelID, Serial: e.Serial}
}

// Serialized reports whether the event refers to a serialized unit.
// Only serialized events participate in daily balance recalculation.
func (e *Event) Serialized() bool {
	return e.Serial != ""
}

// Validate checks the event before it enters the store.
func (e *Event) Validate() error {
	if !e.Kind.Valid() {
		return apperror.NewValidation("unknown event kind").WithDetail("kind", string(e.Kind))
	}
	if e.Date.IsZero() {
		return apperror.NewValidation("event date is required")
	}
	if id.IsNil(e.LocationID) {
		return apperror.NewValidation("location_id is required")
	}
	if id.IsNil(e.ModelID) {
		return apperror.NewValidation("model_id is required")
	}
	if e.Serial != "" && !ValidSerial(e.Serial) {
		return apperror.NewValidation("serial must be a 15-digit numeric string").
			WithDetail("serial", e.Serial)
	}
	if e.Kind.Signed() {
		if e.Quantity.IsZero() {
			return apperror.NewValidation("correction quantity must be non-zero")
		}
	} else if !e.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", e.Quantity.Int64())
	}
	return nil
}

// NewEvent creates an event with a generated id and timestamp.
func NewEvent(date types.Date, locationID, modelID id.ID, serial string, kind Kind, quantity types.Quantity) *Event {
	return &Event{
		ID:         id.New(),
		Date:       date,
		LocationID: locationID,
		ModelID:    modelID,
		Serial:     serial,
		Kind:       kind,
		Quantity:   quantity,
		CreatedAt:  time.Now().UTC(),
	}
}
