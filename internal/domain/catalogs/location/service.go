package location

import (
	"context"
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/pkg/logger"
)

// Service provides business operations for the Location catalog.
type Service struct {
	repo Repository
}

// NewService creates a Location service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new location.
func (s *Service) Create(ctx context.Context, loc *Location) error {
	if err := loc.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.GetByCode(ctx, loc.Code); err != nil {
		return err
	} else if existing != nil {
		return apperror.NewDuplicate("location", "code", loc.Code)
	}

	if err := s.repo.Create(ctx, loc); err != nil {
		return err
	}

	logger.Info(ctx, "location created", "id", loc.ID, "code", loc.Code)
	return nil
}

// Update validates and rewrites a location.
func (s *Service) Update(ctx context.Context, loc *Location) error {
	if err := loc.Validate(ctx); err != nil {
		return err
	}
	loc.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, loc)
}

// GetByID retrieves a location.
func (s *Service) GetByID(ctx context.Context, locID id.ID) (*Location, error) {
	loc, err := s.repo.GetByID(ctx, locID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, apperror.NewNotFound("location", locID.String())
	}
	return loc, nil
}

// List returns locations, optionally active only.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Location, error) {
	return s.repo.List(ctx, activeOnly)
}
