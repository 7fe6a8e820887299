package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"imeistock/internal/core/types"
	"imeistock/internal/domain/ledger"
	"imeistock/internal/infrastructure/storage/postgres"
)

const balancesTable = "daily_balances"

var balanceColumns = []string{
	"balance_date", "location_id", "model_id", "serial",
	"opening", "incoming", "sold", "returned", "net_adjustment",
	"closing", "updated_at",
}

// BalanceRepo implements ledger.BalanceStore.
type BalanceRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBalanceRepo creates a new daily balance repository.
func NewBalanceRepo(txm *postgres.TxManager) *BalanceRepo {
	return &BalanceRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetBalance returns the row for (unit, date), or nil when absent.
func (r *BalanceRepo) GetBalance(ctx context.Context, unit ledger.UnitKey, date types.Date) (*ledger.DailyBalance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{
			"balance_date": date,
			"location_id":  unit.LocationID,
			"model_id":     unit.ModelID,
			"serial":       unit.Serial,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balance ledger.DailyBalance
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &balance, nil
}

// UpsertBalance inserts or fully overwrites the row keyed by
// (date, location, model, serial).
func (r *BalanceRepo) UpsertBalance(ctx context.Context, balance *ledger.DailyBalance) error {
	q := r.builder.Insert(balancesTable).
		Columns(balanceColumns...).
		Values(
			balance.Date, balance.LocationID, balance.ModelID, balance.Serial,
			balance.Opening, balance.Incoming, balance.Sold, balance.Returned,
			balance.NetAdjustment, balance.Closing, balance.UpdatedAt,
		).
		Suffix(`ON CONFLICT (balance_date, location_id, model_id, serial) DO UPDATE SET
			opening = EXCLUDED.opening,
			incoming = EXCLUDED.incoming,
			sold = EXCLUDED.sold,
			returned = EXCLUDED.returned,
			net_adjustment = EXCLUDED.net_adjustment,
			closing = EXCLUDED.closing,
			updated_at = EXCLUDED.updated_at`)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// InsertBalanceIfAbsent inserts the row only when no row exists for
// its key. A concurrent engine write wins over the rollover.
func (r *BalanceRepo) InsertBalanceIfAbsent(ctx context.Context, balance *ledger.DailyBalance) (bool, error) {
	q := r.builder.Insert(balancesTable).
		Columns(balanceColumns...).
		Values(
			balance.Date, balance.LocationID, balance.ModelID, balance.Serial,
			balance.Opening, balance.Incoming, balance.Sold, balance.Returned,
			balance.NetAdjustment, balance.Closing, balance.UpdatedAt,
		).
		Suffix("ON CONFLICT (balance_date, location_id, model_id, serial) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("insert balance: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LockUnit serializes writers for one unit within the current
// transaction using a transaction-scoped advisory lock.
func (r *BalanceRepo) LockUnit(ctx context.Context, unit ledger.UnitKey) error {
	sql := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, unit.String()); err != nil {
		return fmt.Errorf("lock unit %s: %w", unit, err)
	}
	return nil
}

// ListBalances returns rows matching the filter ordered by
// (serial, date).
func (r *BalanceRepo) ListBalances(ctx context.Context, filter ledger.BalanceFilter) ([]ledger.DailyBalance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.GtOrEq{"balance_date": filter.FromDate}).
		Where(squirrel.LtOrEq{"balance_date": filter.ToDate})

	if filter.Scope.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.Scope.LocationID})
	}
	if filter.Scope.ModelID != nil {
		q = q.Where(squirrel.Eq{"model_id": *filter.Scope.ModelID})
	}
	if filter.Scope.Serial != nil {
		q = q.Where(squirrel.Eq{"serial": *filter.Scope.Serial})
	}

	q = q.OrderBy("serial", "balance_date", "location_id", "model_id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []ledger.DailyBalance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// RolloverCandidates returns the previous day's rows for units that
// have a row on prev but none on day.
func (r *BalanceRepo) RolloverCandidates(ctx context.Context, prev, day types.Date) ([]ledger.DailyBalance, error) {
	sql := `
		SELECT b.balance_date, b.location_id, b.model_id, b.serial,
		       b.opening, b.incoming, b.sold, b.returned, b.net_adjustment,
		       b.closing, b.updated_at
		FROM daily_balances b
		WHERE b.balance_date = $1
		  AND NOT EXISTS (
			SELECT 1 FROM daily_balances d
			WHERE d.balance_date = $2
			  AND d.location_id = b.location_id
			  AND d.model_id = b.model_id
			  AND d.serial = b.serial
		  )
		ORDER BY b.serial, b.location_id, b.model_id
	`

	var balances []ledger.DailyBalance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, prev, day); err != nil {
		return nil, fmt.Errorf("select rollover candidates: %w", err)
	}
	return balances, nil
}

// Ensure interface compliance.
var _ ledger.BalanceStore = (*BalanceRepo)(nil)
