package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultAuditCompressThreshold is the change size above which payloads are zstd-compressed.
const DefaultAuditCompressThreshold = 10 * 1024

// auditRow is a sys_audit row.
type auditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	OperatorID        string          `db:"operator_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

var _ audit.Recorder = (*AuditLog)(nil)

// AuditLog implements audit.Recorder on sys_audit.
type AuditLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditLog creates an audit log. A threshold <= 0 uses DefaultAuditCompressThreshold.
func NewAuditLog(txManager *TxManager, compressThreshold int) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if compressThreshold <= 0 {
		compressThreshold = DefaultAuditCompressThreshold
	}
	return &AuditLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// LogChange records an entity change in the caller's transaction.
func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	row := auditRow{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     string(action),
		OperatorID: appctx.GetOperatorID(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	row.Changes, row.ChangesCompressed, row.CompressionAlgo = a.pack(changesJSON)

	_, err = a.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, operator_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		row.ID, row.EntityType, row.EntityID, row.Action, row.OperatorID,
		row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns an entity's audit entries, newest first.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, entity_type, entity_id, action, operator_id,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[auditRow])
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}

	entries := make([]audit.Entry, 0, len(records))
	for _, r := range records {
		changes, err := a.unpack(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, audit.Entry{
			ID:         r.ID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     audit.Action(r.Action),
			OperatorID: r.OperatorID,
			Changes:    changes,
			CreatedAt:  r.CreatedAt,
		})
	}
	return entries, nil
}

// pack compresses changes larger than the threshold.
func (a *AuditLog) pack(changes []byte) (json.RawMessage, []byte, CompressionAlgo) {
	if len(changes) <= a.compressThreshold {
		return changes, nil, CompressionNone
	}
	return nil, a.encoder.EncodeAll(changes, nil), CompressionZstd
}

func (a *AuditLog) unpack(r auditRow) (json.RawMessage, error) {
	if r.CompressionAlgo != CompressionZstd || len(r.ChangesCompressed) == 0 {
		return r.Changes, nil
	}
	decompressed, err := a.decoder.DecodeAll(r.ChangesCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress changes: %w", err)
	}
	return decompressed, nil
}
