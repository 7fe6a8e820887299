package dto

import (
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/types"
	"imeistock/internal/domain/ledger"
)

// BalanceResponse is one daily balance row.
type BalanceResponse struct {
	Date          string    `json:"date"`
	LocationID    string    `json:"locationId"`
	ModelID       string    `json:"modelId"`
	Serial        string    `json:"serial"`
	Opening       int64     `json:"opening"`
	Incoming      int64     `json:"incoming"`
	Sold          int64     `json:"sold"`
	Returned      int64     `json:"returned"`
	NetAdjustment int64     `json:"netAdjustment"`
	Closing       int64     `json:"closing"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromBalance creates BalanceResponse from a domain row.
func FromBalance(b *ledger.DailyBalance) BalanceResponse {
	return BalanceResponse{
		Date:          b.Date.String(),
		LocationID:    b.LocationID.String(),
		ModelID:       b.ModelID.String(),
		Serial:        b.Serial,
		Opening:       b.Opening.Int64(),
		Incoming:      b.Incoming.Int64(),
		Sold:          b.Sold.Int64(),
		Returned:      b.Returned.Int64(),
		NetAdjustment: b.NetAdjustment.Int64(),
		Closing:       b.Closing.Int64(),
		UpdatedAt:     b.UpdatedAt,
	}
}

// FromBalances converts a slice of domain rows.
func FromBalances(balances []ledger.DailyBalance) []BalanceResponse {
	out := make([]BalanceResponse, 0, len(balances))
	for i := range balances {
		out = append(out, FromBalance(&balances[i]))
	}
	return out
}

// ListBalancesQuery holds balance listing filters. From and to are
// required so a listing never scans the whole table.
type ListBalancesQuery struct {
	From       string `form:"from" binding:"required"`
	To         string `form:"to" binding:"required"`
	LocationID string `form:"locationId"`
	ModelID    string `form:"modelId"`
	Serial     string `form:"serial"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// ToFilter converts the query into a domain filter.
func (q *ListBalancesQuery) ToFilter() (ledger.BalanceFilter, error) {
	var filter ledger.BalanceFilter

	from, err := types.ParseDate(q.From)
	if err != nil {
		return filter, apperror.NewValidation("invalid from date").WithDetail("from", q.From)
	}
	to, err := types.ParseDate(q.To)
	if err != nil {
		return filter, apperror.NewValidation("invalid to date").WithDetail("to", q.To)
	}

	scope, err := parseScope(q.LocationID, q.ModelID, q.Serial)
	if err != nil {
		return filter, err
	}

	filter.Scope = scope
	filter.FromDate = from
	filter.ToDate = to
	filter.Limit = q.Limit
	filter.Offset = q.Offset
	if filter.Limit <= 0 || filter.Limit > 5000 {
		filter.Limit = 1000
	}
	return filter, nil
}

// RecalculateRequest triggers a manual bulk recalculation.
type RecalculateRequest struct {
	From       string `json:"from" binding:"required"`
	To         string `json:"to" binding:"required"`
	LocationID string `json:"locationId"`
	ModelID    string `json:"modelId"`
	Serial     string `json:"serial"`
}

// Parse extracts the date range and scope.
func (r *RecalculateRequest) Parse() (types.Date, types.Date, ledger.Scope, error) {
	var zero types.Date

	from, err := types.ParseDate(r.From)
	if err != nil {
		return zero, zero, ledger.Scope{}, apperror.NewValidation("invalid from date").WithDetail("from", r.From)
	}
	to, err := types.ParseDate(r.To)
	if err != nil {
		return zero, zero, ledger.Scope{}, apperror.NewValidation("invalid to date").WithDetail("to", r.To)
	}
	scope, err := parseScope(r.LocationID, r.ModelID, r.Serial)
	if err != nil {
		return zero, zero, ledger.Scope{}, err
	}
	return from, to, scope, nil
}

// RecalculateResponse reports what a recalculation did.
type RecalculateResponse struct {
	DaysProcessed  int `json:"daysProcessed"`
	EntriesWritten int `json:"entriesWritten"`
}

// ChainBreakResponse is one reported continuity violation.
type ChainBreakResponse struct {
	LocationID  string `json:"locationId"`
	ModelID     string `json:"modelId"`
	Serial      string `json:"serial"`
	Date        string `json:"date"`
	Closing     int64  `json:"closing"`
	NextOpening int64  `json:"nextOpening"`
}

// FromChainBreaks converts domain chain breaks.
func FromChainBreaks(breaks []ledger.ChainBreak) []ChainBreakResponse {
	out := make([]ChainBreakResponse, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, ChainBreakResponse{
			LocationID:  b.Unit.LocationID.String(),
			ModelID:     b.Unit.ModelID.String(),
			Serial:      b.Unit.Serial,
			Date:        b.Date.String(),
			Closing:     b.Closing,
			NextOpening: b.NextOpening,
		})
	}
	return out
}

// RolloverResponse reports a rollover run.
type RolloverResponse struct {
	Date        string `json:"date"`
	RolledUnits int    `json:"rolledUnits"`
}
