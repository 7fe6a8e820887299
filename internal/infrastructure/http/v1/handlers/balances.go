package handlers

import (
	"github.com/gin-gonic/gin"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/types"
	"imeistock/internal/domain/ledger"
	"imeistock/internal/infrastructure/http/v1/dto"
)

// BalancesHandler serves the daily balance read and maintenance API.
type BalancesHandler struct {
	*BaseHandler
	balances  ledger.BalanceStore
	engine    *ledger.Engine
	scheduler *ledger.Scheduler
	service   *ledger.Service
}

// NewBalancesHandler creates a new balances handler.
func NewBalancesHandler(base *BaseHandler, balances ledger.BalanceStore, engine *ledger.Engine, scheduler *ledger.Scheduler, service *ledger.Service) *BalancesHandler {
	return &BalancesHandler{
		BaseHandler: base,
		balances:    balances,
		engine:      engine,
		scheduler:   scheduler,
		service:     service,
	}
}

// List returns daily balance rows for a date range.
// GET /api/v1/balances
func (h *BalancesHandler) List(c *gin.Context) {
	var query dto.ListBalancesQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	rows, err := h.balances.ListBalances(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  dto.FromBalances(rows),
		Count:  len(rows),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Recalculate triggers a manual bulk rebuild over a date range.
// POST /api/v1/balances/recalculate
func (h *BalancesHandler) Recalculate(c *gin.Context) {
	var req dto.RecalculateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	from, to, scope, err := req.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.Recalculate(c.Request.Context(), from, to, scope)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.RecalculateResponse{
		DaysProcessed:  result.DaysProcessed,
		EntriesWritten: result.EntriesWritten,
	})
}

// Verify checks balance chain continuity over a date range.
// GET /api/v1/balances/verify
func (h *BalancesHandler) Verify(c *gin.Context) {
	var query dto.ListBalancesQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	breaks, err := h.engine.VerifyChain(c.Request.Context(), filter.FromDate, filter.ToDate, filter.Scope)
	if err != nil {
		h.Error(c, err)
		return
	}
	if len(breaks) > 0 {
		// Broken chains are data corruption; report them as an error,
		// with every break in the details.
		h.Error(c, breaks[0].Err().
			WithDetail("count", len(breaks)).
			WithDetail("breaks", dto.FromChainBreaks(breaks)))
		return
	}

	h.OK(c, gin.H{"ok": true})
}

// Rollover materializes the day's opening rows from the previous day.
// Defaults to today; an explicit date supports catch-up runs.
// POST /api/v1/balances/rollover
func (h *BalancesHandler) Rollover(c *gin.Context) {
	day := h.service.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := types.ParseDate(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid date").WithDetail("date", raw))
			return
		}
		day = parsed
	}

	rolled, err := h.scheduler.RolloverIfNeeded(c.Request.Context(), day)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.RolloverResponse{
		Date:        day.String(),
		RolledUnits: rolled,
	})
}
