package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"imeistock/internal/core/id"
	"imeistock/internal/domain/catalogs/phonemodel"
	"imeistock/internal/infrastructure/storage/postgres"
)

const phoneModelsTable = "cat_phone_models"

var phoneModelColumns = []string{
	"id", "brand", "name", "is_active", "created_at", "updated_at",
}

// PhoneModelRepo implements phonemodel.Repository.
type PhoneModelRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewPhoneModelRepo creates a new phone model catalog repository.
func NewPhoneModelRepo(txm *postgres.TxManager) *PhoneModelRepo {
	return &PhoneModelRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new phone model.
func (r *PhoneModelRepo) Create(ctx context.Context, model *phonemodel.PhoneModel) error {
	q := r.builder.Insert(phoneModelsTable).
		Columns(phoneModelColumns...).
		Values(model.ID, model.Brand, model.Name, model.IsActive, model.CreatedAt, model.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert phone model: %w", err)
	}
	return nil
}

// Update rewrites an existing phone model.
func (r *PhoneModelRepo) Update(ctx context.Context, model *phonemodel.PhoneModel) error {
	q := r.builder.Update(phoneModelsTable).
		Set("brand", model.Brand).
		Set("name", model.Name).
		Set("is_active", model.IsActive).
		Set("updated_at", model.UpdatedAt).
		Where(squirrel.Eq{"id": model.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update phone model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update phone model %s: no rows affected", model.ID)
	}
	return nil
}

// GetByID retrieves a phone model, or nil when absent.
func (r *PhoneModelRepo) GetByID(ctx context.Context, modelID id.ID) (*phonemodel.PhoneModel, error) {
	q := r.builder.Select(phoneModelColumns...).
		From(phoneModelsTable).
		Where(squirrel.Eq{"id": modelID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var model phonemodel.PhoneModel
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &model, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get phone model: %w", err)
	}
	return &model, nil
}

// List returns phone models filtered by brand and active flag, ordered
// by brand then name.
func (r *PhoneModelRepo) List(ctx context.Context, brand string, activeOnly bool) ([]phonemodel.PhoneModel, error) {
	q := r.builder.Select(phoneModelColumns...).From(phoneModelsTable)
	if brand != "" {
		q = q.Where(squirrel.Eq{"brand": brand})
	}
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	q = q.OrderBy("brand", "name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var models []phonemodel.PhoneModel
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &models, sql, args...); err != nil {
		return nil, fmt.Errorf("select phone models: %w", err)
	}
	return models, nil
}

// Ensure interface compliance.
var _ phonemodel.Repository = (*PhoneModelRepo)(nil)
