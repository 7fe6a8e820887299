package dto

import (
	"encoding/json"
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/internal/core/types"
	"imeistock/internal/domain/ledger"
)

// EventRequest is one stock movement in a record or update call.
type EventRequest struct {
	Date       string          `json:"date" binding:"required"`
	LocationID string          `json:"locationId" binding:"required"`
	ModelID    string          `json:"modelId" binding:"required"`
	Serial     string          `json:"serial"`
	Kind       string          `json:"kind" binding:"required"`
	Quantity   int64           `json:"quantity" binding:"required"`
	UnitPrice  *string         `json:"unitPrice"`
	Notes      string          `json:"notes"`
	Metadata   json.RawMessage `json:"metadata"`
}

// ToEvent converts the request into a domain event. Field format
// errors come back as validation errors; business validation happens
// in the domain.
func (r *EventRequest) ToEvent() (ledger.Event, error) {
	date, err := types.ParseDate(r.Date)
	if err != nil {
		return ledger.Event{}, apperror.NewValidation("invalid date").WithDetail("date", r.Date)
	}
	locationID, err := id.Parse(r.LocationID)
	if err != nil {
		return ledger.Event{}, apperror.NewValidation("invalid locationId").WithDetail("locationId", r.LocationID)
	}
	modelID, err := id.Parse(r.ModelID)
	if err != nil {
		return ledger.Event{}, apperror.NewValidation("invalid modelId").WithDetail("modelId", r.ModelID)
	}

	event := ledger.Event{
		Date:       date,
		LocationID: locationID,
		ModelID:    modelID,
		Serial:     r.Serial,
		Kind:       ledger.Kind(r.Kind),
		Quantity:   types.Quantity(r.Quantity),
		Notes:      r.Notes,
		Metadata:   r.Metadata,
	}

	if r.UnitPrice != nil {
		price, err := types.NewMoneyFromString(*r.UnitPrice)
		if err != nil {
			return ledger.Event{}, apperror.NewValidation("invalid unitPrice").WithDetail("unitPrice", *r.UnitPrice)
		}
		event.UnitPrice = &price
	}

	return event, nil
}

// RecordEventsRequest is the batch ingestion payload.
type RecordEventsRequest struct {
	Events []EventRequest `json:"events" binding:"required,min=1"`
}

// EventResponse is one stored event.
type EventResponse struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	LocationID string          `json:"locationId"`
	ModelID    string          `json:"modelId"`
	Serial     string          `json:"serial,omitempty"`
	Kind       string          `json:"kind"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  *string         `json:"unitPrice,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromEvent creates EventResponse from a domain event.
func FromEvent(e *ledger.Event) EventResponse {
	resp := EventResponse{
		ID:         e.ID.String(),
		Date:       e.Date.String(),
		LocationID: e.LocationID.String(),
		ModelID:    e.ModelID.String(),
		Serial:     e.Serial,
		Kind:       string(e.Kind),
		Quantity:   e.Quantity.Int64(),
		Notes:      e.Notes,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
	if e.UnitPrice != nil {
		s := e.UnitPrice.String()
		resp.UnitPrice = &s
	}
	return resp
}

// FromEvents converts a slice of domain events.
func FromEvents(events []ledger.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, FromEvent(&events[i]))
	}
	return out
}

// ListEventsQuery holds event listing filters.
type ListEventsQuery struct {
	LocationID string `form:"locationId"`
	ModelID    string `form:"modelId"`
	Serial     string `form:"serial"`
	Kind       string `form:"kind"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// ToFilter converts the query into a domain filter.
func (q *ListEventsQuery) ToFilter() (ledger.EventFilter, error) {
	filter := ledger.EventFilter{
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}

	scope, err := parseScope(q.LocationID, q.ModelID, q.Serial)
	if err != nil {
		return filter, err
	}
	filter.Scope = scope

	if q.From != "" {
		from, err := types.ParseDate(q.From)
		if err != nil {
			return filter, apperror.NewValidation("invalid from date").WithDetail("from", q.From)
		}
		filter.FromDate = &from
	}
	if q.To != "" {
		to, err := types.ParseDate(q.To)
		if err != nil {
			return filter, apperror.NewValidation("invalid to date").WithDetail("to", q.To)
		}
		filter.ToDate = &to
	}
	if q.Kind != "" {
		kind := ledger.Kind(q.Kind)
		if !kind.Valid() {
			return filter, apperror.NewValidation("unknown event kind").WithDetail("kind", q.Kind)
		}
		filter.Kind = &kind
	}
	return filter, nil
}

// parseScope builds a dimension scope from optional string parameters.
func parseScope(locationID, modelID, serial string) (ledger.Scope, error) {
	var scope ledger.Scope
	if locationID != "" {
		loc, err := id.Parse(locationID)
		if err != nil {
			return scope, apperror.NewValidation("invalid locationId").WithDetail("locationId", locationID)
		}
		scope.LocationID = &loc
	}
	if modelID != "" {
		model, err := id.Parse(modelID)
		if err != nil {
			return scope, apperror.NewValidation("invalid modelId").WithDetail("modelId", modelID)
		}
		scope.ModelID = &model
	}
	if serial != "" {
		scope.Serial = &serial
	}
	return scope, nil
}
