package location

import (
	"context"

	"imeistock/internal/core/id"
)

// Repository defines Location persistence.
type Repository interface {
	Create(ctx context.Context, loc *Location) error
	Update(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, locID id.ID) (*Location, error)
	GetByCode(ctx context.Context, code string) (*Location, error)
	List(ctx context.Context, activeOnly bool) ([]Location, error)
}
