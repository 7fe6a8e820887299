// Package catalog_repo provides PostgreSQL implementations for the
// master data catalogs.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"imeistock/internal/core/id"
	"imeistock/internal/domain/catalogs/location"
	"imeistock/internal/infrastructure/storage/postgres"
)

const locationsTable = "cat_locations"

var locationColumns = []string{
	"id", "code", "name", "address", "is_active", "created_at", "updated_at",
}

// LocationRepo implements location.Repository.
type LocationRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLocationRepo creates a new location catalog repository.
func NewLocationRepo(txm *postgres.TxManager) *LocationRepo {
	return &LocationRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new location.
func (r *LocationRepo) Create(ctx context.Context, loc *location.Location) error {
	q := r.builder.Insert(locationsTable).
		Columns(locationColumns...).
		Values(loc.ID, loc.Code, loc.Name, loc.Address, loc.IsActive, loc.CreatedAt, loc.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// Update rewrites an existing location.
func (r *LocationRepo) Update(ctx context.Context, loc *location.Location) error {
	q := r.builder.Update(locationsTable).
		Set("code", loc.Code).
		Set("name", loc.Name).
		Set("address", loc.Address).
		Set("is_active", loc.IsActive).
		Set("updated_at", loc.UpdatedAt).
		Where(squirrel.Eq{"id": loc.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update location %s: no rows affected", loc.ID)
	}
	return nil
}

// GetByID retrieves a location, or nil when absent.
func (r *LocationRepo) GetByID(ctx context.Context, locID id.ID) (*location.Location, error) {
	return r.getOne(ctx, squirrel.Eq{"id": locID})
}

// GetByCode retrieves a location by its unique code, or nil when
// absent.
func (r *LocationRepo) GetByCode(ctx context.Context, code string) (*location.Location, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code})
}

func (r *LocationRepo) getOne(ctx context.Context, where squirrel.Eq) (*location.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(locationsTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var loc location.Location
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &loc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &loc, nil
}

// List returns locations ordered by code.
func (r *LocationRepo) List(ctx context.Context, activeOnly bool) ([]location.Location, error) {
	q := r.builder.Select(locationColumns...).From(locationsTable)
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	q = q.OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var locations []location.Location
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &locations, sql, args...); err != nil {
		return nil, fmt.Errorf("select locations: %w", err)
	}
	return locations, nil
}

// Ensure interface compliance.
var _ location.Repository = (*LocationRepo)(nil)
