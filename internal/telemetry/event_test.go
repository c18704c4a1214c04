package telemetry

import (
	"context"
	"testing"
	"time"
)

type chanEmitter struct {
	events chan *Event
}

func (e *chanEmitter) Emit(_ context.Context, event *Event) error {
	e.events <- event
	return nil
}

func TestEmitAsyncDeliversEvent(t *testing.T) {
	emitter := &chanEmitter{events: make(chan *Event, 1)}
	EmitAsync(emitter, &Event{SessionID: "sess-1", EventType: EventSignupCompleted})

	select {
	case event := <-emitter.events:
		if event.SessionID != "sess-1" || event.EventType != EventSignupCompleted {
			t.Errorf("event = %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEmitAsyncNilSafe(t *testing.T) {
	EmitAsync(nil, &Event{EventType: EventSignupCompleted})

	emitter := &chanEmitter{events: make(chan *Event, 1)}
	EmitAsync(emitter, nil)
	select {
	case event := <-emitter.events:
		t.Errorf("unexpected event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}
