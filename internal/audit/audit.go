// Package audit records who changed what in the CMS.
package audit

import (
	"context"
	"encoding/json"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
)

type Action string

const (
	ActionCreate         Action = "CREATE"
	ActionUpdate         Action = "UPDATE"
	ActionDelete         Action = "DELETE"
	ActionReorder        Action = "REORDER"
	ActionUpload         Action = "UPLOAD"
	ActionLogin          Action = "LOGIN"
	ActionLoginFailed    Action = "LOGIN_FAILED"
	ActionLogout         Action = "LOGOUT"
	ActionPasswordChange Action = "PASSWORD_CHANGE"
	ActionPasswordReset  Action = "PASSWORD_RESET"
	ActionMigrate        Action = "MIGRATE"
)

var actions = []Action{
	ActionCreate, ActionUpdate, ActionDelete, ActionReorder, ActionUpload,
	ActionLogin, ActionLoginFailed, ActionLogout, ActionPasswordChange,
	ActionPasswordReset, ActionMigrate,
}

// ValidAction reports whether value names a known action.
func ValidAction(value string) bool {
	for _, a := range actions {
		if string(a) == value {
			return true
		}
	}
	return false
}

// Sink persists audit entries.
type Sink interface {
	InsertAuditLog(ctx context.Context, entry store.AuditEntry) error
}

// Writer persists entries and swallows failures after logging them, so an
// audit outage never fails the caller.
type Writer struct {
	sink   Sink
	logger *zap.Logger
}

func NewWriter(sink Sink, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{sink: sink, logger: logger.Named("audit")}
}

func (w *Writer) Record(ctx context.Context, entry store.AuditEntry) {
	if w == nil || w.sink == nil {
		return
	}
	if err := w.sink.InsertAuditLog(ctx, entry); err != nil {
		w.logger.Error("write audit log",
			zap.String("action", entry.Action),
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID),
			zap.String("request_id", entry.RequestID),
			zap.Error(err))
	}
}

// Payload marshals v, falling back to an empty object.
func Payload(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// Change builds the {"before": ..., "after": ...} payload for updates.
func Change(before, after any) json.RawMessage {
	return Payload(map[string]any{"before": before, "after": after})
}
