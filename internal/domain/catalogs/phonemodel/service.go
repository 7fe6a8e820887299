package phonemodel

import (
	"context"
	"time"

	"imeistock/internal/core/apperror"
	"imeistock/internal/core/id"
	"imeistock/pkg/logger"
)

// Service provides business operations for the PhoneModel catalog.
type Service struct {
	repo Repository
}

// NewService creates a PhoneModel service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new model.
func (s *Service) Create(ctx context.Context, model *PhoneModel) error {
	if err := model.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, model); err != nil {
		return err
	}
	logger.Info(ctx, "phone model created", "id", model.ID, "name", model.FullName())
	return nil
}

// Update validates and rewrites a model.
func (s *Service) Update(ctx context.Context, model *PhoneModel) error {
	if err := model.Validate(ctx); err != nil {
		return err
	}
	model.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, model)
}

// GetByID retrieves a model.
func (s *Service) GetByID(ctx context.Context, modelID id.ID) (*PhoneModel, error) {
	model, err := s.repo.GetByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, apperror.NewNotFound("phone model", modelID.String())
	}
	return model, nil
}

// List returns models filtered by brand and active flag.
func (s *Service) List(ctx context.Context, brand string, activeOnly bool) ([]PhoneModel, error) {
	return s.repo.List(ctx, brand, activeOnly)
}
