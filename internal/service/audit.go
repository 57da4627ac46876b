package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/store"
)

// AuditLogger writes audit events without ever blocking or failing the
// calling operation: inserts run on a goroutine and failures are logged at
// warn level only.
type AuditLogger struct {
	store  *store.Store
	logger *slog.Logger
}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(st *store.Store, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{store: st, logger: logger}
}

// Record persists an audit event (fire and forget).
func (a *AuditLogger) Record(actorID, resource, action, entityID string, diff map[string]interface{}) {
	var diffJSON string
	if len(diff) > 0 {
		b, err := json.Marshal(diff)
		if err != nil {
			a.logger.Warn("audit diff marshal failed", "error", err)
		} else {
			diffJSON = string(b)
		}
	}

	event := &model.AuditEvent{
		ActorID:  actorID,
		Resource: resource,
		Action:   action,
		EntityID: entityID,
		Diff:     diffJSON,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.store.InsertAuditEvent(ctx, event); err != nil {
			a.logger.Warn("audit write failed",
				"actor", actorID, "resource", resource, "action", action, "error", err)
		}
	}()
}
