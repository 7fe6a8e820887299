package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	appctx "imeistock/internal/core/context"
	"imeistock/internal/core/id"
	"imeistock/internal/domain/ledger"
	"imeistock/pkg/logger"
)

// compressThreshold is the payload size above which change sets are
// zstd-compressed before storage.
const compressThreshold = 512

// Compile-time check that AuditService implements ledger.AuditLogger.
var _ ledger.AuditLogger = (*AuditService)(nil)

// AuditService records event mutations into sys_audit. Retroactive
// corrections leave a permanent trail here even after the event row
// itself is rewritten or deleted.
type AuditService struct {
	txm     *TxManager
	builder sq.StatementBuilderType
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewAuditService creates the audit service. The zstd encoder and
// decoder are created once and reused; both are safe for concurrent
// use via EncodeAll/DecodeAll.
func NewAuditService(txm *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditService{
		txm:     txm,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// AuditRecord is one stored mutation.
type AuditRecord struct {
	ID         id.ID           `db:"id" json:"id"`
	Action     string          `db:"action" json:"action"`
	EventID    id.ID           `db:"event_id" json:"eventId"`
	Changes    json.RawMessage `db:"-" json:"changes"`
	RequestID  string          `db:"request_id" json:"requestId,omitempty"`
	RecordedAt time.Time       `db:"recorded_at" json:"recordedAt"`
}

// LogEventChange stores one mutation record. Runs on the caller's
// querier so the record commits or rolls back with the mutation.
func (s *AuditService) LogEventChange(ctx context.Context, action string, eventID id.ID, changes map[string]any) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}

	stored := payload
	compressed := false
	if len(payload) > compressThreshold {
		stored = s.encoder.EncodeAll(payload, nil)
		compressed = true
	}

	query, args, err := s.builder.
		Insert("sys_audit").
		Columns("id", "action", "event_id", "changes", "compressed", "request_id", "recorded_at").
		Values(id.New(), action, eventID, stored, compressed, appctx.GetRequestID(ctx), time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	if _, err := s.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	logger.Debug(ctx, "audit recorded", "action", action, "event_id", eventID)
	return nil
}

// ListByEvent returns the mutation history of one event, newest first.
func (s *AuditService) ListByEvent(ctx context.Context, eventID id.ID, limit int) ([]AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query, args, err := s.builder.
		Select("id", "action", "event_id", "changes", "compressed", "request_id", "recorded_at").
		From("sys_audit").
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("recorded_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit select: %w", err)
	}

	rows, err := s.txm.GetQuerier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var (
			rec        AuditRecord
			stored     []byte
			compressed bool
		)
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.EventID, &stored, &compressed, &rec.RequestID, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if compressed {
			stored, err = s.decoder.DecodeAll(stored, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit record %s: %w", rec.ID, err)
			}
		}
		rec.Changes = stored
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the compression resources.
func (s *AuditService) Close() {
	s.encoder.Close()
	s.decoder.Close()
}
