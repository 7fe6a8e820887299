package dto

import (
	"time"

	"imeistock/internal/domain/catalogs/location"
	"imeistock/internal/domain/catalogs/phonemodel"
)

// --- Locations ---

// CreateLocationRequest for creating outlets.
type CreateLocationRequest struct {
	Code    string  `json:"code" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
}

// UpdateLocationRequest for updating outlets.
type UpdateLocationRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"isActive"`
}

// LocationResponse contains outlet fields.
type LocationResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromLocation creates LocationResponse from the domain type.
func FromLocation(l *location.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID.String(),
		Code:      l.Code,
		Name:      l.Name,
		Address:   l.Address,
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// FromLocations converts a slice of locations.
func FromLocations(locations []location.Location) []LocationResponse {
	out := make([]LocationResponse, 0, len(locations))
	for i := range locations {
		out = append(out, FromLocation(&locations[i]))
	}
	return out
}

// --- Phone models ---

// CreatePhoneModelRequest for creating handset models.
type CreatePhoneModelRequest struct {
	Brand string `json:"brand" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

// UpdatePhoneModelRequest for updating handset models.
type UpdatePhoneModelRequest struct {
	Brand    *string `json:"brand"`
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
}

// PhoneModelResponse contains handset model fields.
type PhoneModelResponse struct {
	ID        string    `json:"id"`
	Brand     string    `json:"brand"`
	Name      string    `json:"name"`
	FullName  string    `json:"fullName"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromPhoneModel creates PhoneModelResponse from the domain type.
func FromPhoneModel(m *phonemodel.PhoneModel) PhoneModelResponse {
	return PhoneModelResponse{
		ID:        m.ID.String(),
		Brand:     m.Brand,
		Name:      m.Name,
		FullName:  m.FullName(),
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromPhoneModels converts a slice of models.
func FromPhoneModels(models []phonemodel.PhoneModel) []PhoneModelResponse {
	out := make([]PhoneModelResponse, 0, len(models))
	for i := range models {
		out = append(out, FromPhoneModel(&models[i]))
	}
	return out
}
