package phonemodel

import (
	"context"

	"imeistock/internal/core/id"
)

// Repository defines PhoneModel persistence.
type Repository interface {
	Create(ctx context.Context, model *PhoneModel) error
	Update(ctx context.Context, model *PhoneModel) error
	GetByID(ctx context.Context, modelID id.ID) (*PhoneModel, error)
	List(ctx context.Context, brand string, activeOnly bool) ([]PhoneModel, error)
}
