package domain

import "time"

// Severity classifies an audit event for operator triage.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// AuditLog is one audit event tied to a signup session.
type AuditLog struct {
	ID        string
	SessionID string
	Action    string
	Resource  string
	Severity  Severity
	Metadata  string
	CreatedAt time.Time
}
