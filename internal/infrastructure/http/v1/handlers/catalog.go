package handlers

import (
	"github.com/gin-gonic/gin"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/internal/domain/catalogs/location"
	"imeistock/internal/domain/catalogs/phonemodel"
	"imeistock/internal/infrastructure/http/v1/dto"
)

// CatalogHandler serves the master data catalogs: locations and phone
// models.
type CatalogHandler struct {
	*BaseHandler
	locations *location.Service
	models    *phonemodel.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, locations *location.Service, models *phonemodel.Service) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: base,
		locations:   locations,
		models:      models,
	}
}

// --- Locations ---

// CreateLocation creates an outlet.
// POST /api/v1/locations
func (h *CatalogHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc := location.NewLocation(req.Code, req.Name)
	loc.Address = req.Address

	if err := h.locations.Create(c.Request.Context(), loc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, loc.ID.String())
}

// GetLocation retrieves an outlet.
// GET /api/v1/locations/:id
func (h *CatalogHandler) GetLocation(c *gin.Context) {
	locID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid location id"))
		return
	}

	loc, err := h.locations.GetByID(c.Request.Context(), locID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLocation(loc))
}

// UpdateLocation updates an outlet.
// PUT /api/v1/locations/:id
func (h *CatalogHandler) UpdateLocation(c *gin.Context) {
	locID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid location id"))
		return
	}

	var req dto.UpdateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc, err := h.locations.GetByID(c.Request.Context(), locID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Code != nil {
		loc.Code = *req.Code
	}
	if req.Name != nil {
		loc.Name = *req.Name
	}
	if req.Address != nil {
		loc.Address = req.Address
	}
	if req.IsActive != nil {
		loc.IsActive = *req.IsActive
	}

	if err := h.locations.Update(c.Request.Context(), loc); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromLocation(loc))
}

// ListLocations returns outlets.
// GET /api/v1/locations
func (h *CatalogHandler) ListLocations(c *gin.Context) {
	activeOnly := h.ParseBoolQuery(c, "activeOnly", false)

	locations, err := h.locations.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items: dto.FromLocations(locations),
		Count: len(locations),
	})
}

// --- Phone models ---

// CreatePhoneModel creates a handset model.
// POST /api/v1/models
func (h *CatalogHandler) CreatePhoneModel(c *gin.Context) {
	var req dto.CreatePhoneModelRequest
	if !h.BindJSON(c, &req) {
		return
	}

	model := phonemodel.NewPhoneModel(req.Brand, req.Name)
	if err := h.models.Create(c.Request.Context(), model); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, model.ID.String())
}

// GetPhoneModel retrieves a handset model.
// GET /api/v1/models/:id
func (h *CatalogHandler) GetPhoneModel(c *gin.Context) {
	modelID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid model id"))
		return
	}

	model, err := h.models.GetByID(c.Request.Context(), modelID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPhoneModel(model))
}

// UpdatePhoneModel updates a handset model.
// PUT /api/v1/models/:id
func (h *CatalogHandler) UpdatePhoneModel(c *gin.Context) {
	modelID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid model id"))
		return
	}

	var req dto.UpdatePhoneModelRequest
	if !h.BindJSON(c, &req) {
		return
	}

	model, err := h.models.GetByID(c.Request.Context(), modelID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Brand != nil {
		model.Brand = *req.Brand
	}
	if req.Name != nil {
		model.Name = *req.Name
	}
	if req.IsActive != nil {
		model.IsActive = *req.IsActive
	}

	if err := h.models.Update(c.Request.Context(), model); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPhoneModel(model))
}

// ListPhoneModels returns handset models.
// GET /api/v1/models
func (h *CatalogHandler) ListPhoneModels(c *gin.Context) {
	brand := c.Query("brand")
	activeOnly := h.ParseBoolQuery(c, "activeOnly", false)

	models, err := h.models.List(c.Request.Context(), brand, activeOnly)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items: dto.FromPhoneModels(models),
		Count: len(models),
	})
}
