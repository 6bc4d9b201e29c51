package service

import (
	"context"
	"time"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const auditWriteTimeout = 5 * time.Second

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record writes entry asynchronously (fire-and-forget). A persistence
// failure is logged and never reaches the caller.
func (s *auditService) Record(_ context.Context, entry domain.AuditLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	go func() {
		event := s.log.Info()
		if entry.Status == domain.AuditStatusFailure {
			event = s.log.Warn()
		}
		event.
			Str("event_type", string(entry.EventType)).
			Str("db_table", entry.DBTable).
			Str("status", string(entry.Status)).
			Msg("audit")

		if s.repo == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()
		if err := s.repo.Create(ctx, &entry); err != nil {
			s.log.Warn().Err(err).Str("event_type", string(entry.EventType)).Msg("failed to persist audit log")
		}
	}()
}

// failureEntry builds the audit entry recorded when an operation fails.
func failureEntry(event domain.AuditEvent, table string, tableID string, actorType string, actorID string, attempted map[string]any, err error) domain.AuditLog {
	entry := domain.AuditLog{
		EventType:        event,
		DBTable:          table,
		Status:           domain.AuditStatusFailure,
		AttemptedChanges: attempted,
		ActorType:        strPtr(actorType),
	}
	if tableID != "" {
		entry.TableID = strPtr(tableID)
	}
	if actorID != "" {
		entry.ActorID = strPtr(actorID)
	}
	if err != nil {
		entry.ErrorMessage = strPtr(err.Error())
	}
	return entry
}
