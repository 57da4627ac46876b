package store

import (
	"context"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/model"
)

// InsertAuditEvent appends an event to the audit trail.
func (s *Store) InsertAuditEvent(ctx context.Context, e *model.AuditEvent) error {
	e.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO audit_events (actor_id, resource, action, entity_id, diff, created_at)
		VALUES (:actor_id, :resource, :action, :entity_id, :diff, :created_at)`

	id, err := s.namedInsertID(ctx, q, e)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	e.ID = id
	return nil
}

// ListAuditEvents returns the most recent audit events, newest first.
func (s *Store) ListAuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []model.AuditEvent
	q := s.rebind("SELECT * FROM audit_events ORDER BY id DESC LIMIT ?")
	if err := s.db.SelectContext(ctx, &events, q, limit); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
