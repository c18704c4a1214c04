package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"yfi-bank/backend/internal/telemetry"
)

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("yfibank.signup")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.Event) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the signup event to an OTel log record and emits it. Best-effort; errors are logged.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if event.Metadata != "" {
		rec.SetBody(otellog.StringValue(event.Metadata))
	}
	if event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.SessionID))
	}
	if event.IdentityID != "" {
		rec.AddAttributes(otellog.String("identity_id", event.IdentityID))
	}
	if event.EventType != "" {
		rec.AddAttributes(otellog.String("event_type", event.EventType))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
