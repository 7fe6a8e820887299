package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"imeistock/pkg/logger"
)

// Copier abstracts COPY support, implemented by both pgxpool.Pool and
// pgx.Tx.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// GetCopier returns a COPY-capable handle for the context, preferring
// the active transaction.
func (m *TxManager) GetCopier(ctx context.Context) Copier {
	if tx := m.GetTx(ctx); tx != nil {
		return tx.Tx
	}
	return m.pool
}

// BatchInserter bulk-loads rows via the COPY protocol. Used by the
// event store fast path for large intake batches.
type BatchInserter struct {
	txm *TxManager
}

// NewBatchInserter creates a batch inserter bound to the transaction
// manager.
func NewBatchInserter(txm *TxManager) *BatchInserter {
	return &BatchInserter{txm: txm}
}

// CopyInto writes rows into table using COPY. Returns the number of
// rows written.
func (b *BatchInserter) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copier := b.txm.GetCopier(ctx)
	n, err := copier.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}

	logger.Debug(ctx, "batch copy completed", "table", table, "rows", n)
	return n, nil
}
