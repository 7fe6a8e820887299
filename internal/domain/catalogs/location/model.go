// Package location provides the Location catalog: the outlets and
// storage points stock moves between. The ledger treats location ids
// as opaque dimensions.
package location

import (
	"context"
	"strings"
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
)

// Location represents one outlet or storage point.
type Location struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates whether the outlet is operational
	IsActive bool `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewLocation creates a Location with required fields.
func NewLocation(code, name string) *Location {
	now := time.Now().UTC()
	return &Location{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks required fields.
func (l *Location) Validate(ctx context.Context) error {
	if strings.TrimSpace(l.Name) == "" {
		return apperror.NewValidation("location name is required")
	}
	if strings.TrimSpace(l.Code) == "" {
		return apperror.NewValidation("location code is required")
	}
	return nil
}
