// Package phonemodel provides the PhoneModel catalog: brand + model
// master data for the handsets tracked in the ledger.
package phonemodel

import (
	"context"
	"strings"
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
)

// PhoneModel represents one sellable handset model.
type PhoneModel struct {
	ID    id.ID  `db:"id" json:"id"`
	Brand string `db:"brand" json:"brand"`
	Name  string `db:"name" json:"name"`

	// IsActive indicates whether the model is still sold
	IsActive bool `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewPhoneModel creates a PhoneModel with required fields.
func NewPhoneModel(brand, name string) *PhoneModel {
	now := time.Now().UTC()
	return &PhoneModel{
		ID:        id.New(),
		Brand:     brand,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FullName returns "Brand Name" for display.
func (m *PhoneModel) FullName() string {
	return strings.TrimSpace(m.Brand + " " + m.Name)
}

// Validate checks required fields.
func (m *PhoneModel) Validate(ctx context.Context) error {
	if strings.TrimSpace(m.Brand) == "" {
		return apperror.NewValidation("brand is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return apperror.NewValidation("model name is required")
	}
	return nil
}
