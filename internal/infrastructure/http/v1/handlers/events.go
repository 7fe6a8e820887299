package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/internal/domain/ledger"
	"imeistock/internal/infrastructure/http/v1/dto"
	"imeistock/internal/infrastructure/storage/postgres"
)

// EventsHandler serves the stock event ingestion and query API.
// Every mutation synchronously recalculates the affected units before
// the response is sent.
type EventsHandler struct {
	*BaseHandler
	service *ledger.Service
	audit   *postgres.AuditService
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(base *BaseHandler, service *ledger.Service, audit *postgres.AuditService) *EventsHandler {
	return &EventsHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Record handles batch event ingestion.
// POST /api/v1/events
func (h *EventsHandler) Record(c *gin.Context) {
	var req dto.RecordEventsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	events := make([]ledger.Event, 0, len(req.Events))
	for i := range req.Events {
		event, err := req.Events[i].ToEvent()
		if err != nil {
			h.Error(c, err)
			return
		}
		events = append(events, event)
	}

	result, err := h.service.RecordEvents(c.Request.Context(), events)
	if err != nil {
		h.Error(c, err)
		return
	}

	ids := make([]string, 0, len(events))
	for i := range events {
		ids = append(ids, events[i].ID.String())
	}

	c.JSON(http.StatusCreated, gin.H{
		"eventIds": ids,
		"recalculation": dto.RecalculateResponse{
			DaysProcessed:  result.DaysProcessed,
			EntriesWritten: result.EntriesWritten,
		},
	})
}

// Get retrieves a single event.
// GET /api/v1/events/:id
func (h *EventsHandler) Get(c *gin.Context) {
	eventID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid event id"))
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromEvent(event))
}

// Update rewrites an event and recalculates both the old and new unit.
// PUT /api/v1/events/:id
func (h *EventsHandler) Update(c *gin.Context) {
	eventID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid event id"))
		return
	}

	var req dto.EventRequest
	if !h.BindJSON(c, &req) {
		return
	}

	event, err := req.ToEvent()
	if err != nil {
		h.Error(c, err)
		return
	}
	event.ID = eventID

	result, err := h.service.UpdateEvent(c.Request.Context(), &event)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"recalculation": dto.RecalculateResponse{
			DaysProcessed:  result.DaysProcessed,
			EntriesWritten: result.EntriesWritten,
		},
	})
}

// Delete removes an event and recalculates the unit it belonged to.
// DELETE /api/v1/events/:id
func (h *EventsHandler) Delete(c *gin.Context) {
	eventID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid event id"))
		return
	}

	result, err := h.service.DeleteEvent(c.Request.Context(), eventID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"recalculation": dto.RecalculateResponse{
			DaysProcessed:  result.DaysProcessed,
			EntriesWritten: result.EntriesWritten,
		},
	})
}

// List returns events matching the filter, newest day first.
// GET /api/v1/events
func (h *EventsHandler) List(c *gin.Context) {
	var query dto.ListEventsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	events, err := h.service.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  dto.FromEvents(events),
		Count:  len(events),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// History returns the audit trail of one event, newest first.
// GET /api/v1/events/:id/history
func (h *EventsHandler) History(c *gin.Context) {
	eventID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid event id"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 100)
	records, err := h.audit.ListByEvent(c.Request.Context(), eventID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items: records,
		Count: len(records),
		Limit: limit,
	})
}
