// Package audit records signup lifecycle events for operators. Logging is
// best-effort and never fails the operation being audited.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"yfi-bank/backend/internal/audit/domain"
	auditrepo "yfi-bank/backend/internal/audit/repository"
)

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, sessionID, action, resource string, severity domain.Severity, metadata string)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
	log  *slog.Logger
}

// NewLogger returns an AuditLogger that persists to repo. repo may be nil;
// then LogEvent is a no-op.
func NewLogger(repo auditrepo.Repository, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, log: log}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, sessionID, action, resource string, severity domain.Severity, metadata string) {
	if l.repo == nil {
		return
	}
	if severity == "" {
		severity = domain.SeverityInfo
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Action:    action,
		Resource:  resource,
		Severity:  severity,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Error("audit: failed to log event", "action", action, "resource", resource, "err", err)
	}
}
