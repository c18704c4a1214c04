// Package telemetry defines the signup lifecycle events the service emits and
// the emitter abstraction the provisioning code depends on.
package telemetry

import (
	"context"
	"log"
	"time"
)

// Event types emitted during signup.
const (
	EventSignupCompleted  = "signup.completed"
	EventProfileFailed    = "signup.profile_failed_compensated"
	EventOrphanedIdentity = "signup.orphaned_identity"
)

// Event is one signup lifecycle event.
type Event struct {
	SessionID  string
	IdentityID string
	EventType  string
	Metadata   string
	CreatedAt  time.Time
}

// EventEmitter sends a telemetry event to the configured backend.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// EmitAsync runs Emit in a goroutine with a short timeout so the request is
// not blocked on the telemetry backend. Errors are logged, not returned.
func EmitAsync(emitter EventEmitter, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}
