package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"collection-gateway/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository. Entries are insert-only.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create appends an audit entry.
func (r *AuditRepo) Create(ctx context.Context, e *domain.AuditLog) error {
	changes, err := marshalJSONB(e.AttemptedChanges)
	if err != nil {
		return fmt.Errorf("marshal attempted changes: %w", err)
	}
	auditCtx, err := marshalJSONB(e.Context)
	if err != nil {
		return fmt.Errorf("marshal audit context: %w", err)
	}

	query := `INSERT INTO audit_logs (id, event_type, db_table, table_id, status, attempted_changes,
		error_message, context, actor_type, actor_id, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		e.ID, string(e.EventType), e.DBTable, e.TableID, string(e.Status), changes,
		e.ErrorMessage, auditCtx, e.ActorType, e.ActorID, e.TraceID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// marshalJSONB returns nil for an empty map so the column stays NULL.
func marshalJSONB(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
