package guard

import (
	"context"
	"time"
)

// EventType enumerates guard lifecycle events.
type EventType string

const (
	EventActivated      EventType = "guard.activated"
	EventStateChanged   EventType = "guard.state.changed"
	EventProbeFailed    EventType = "guard.probe.failed"
	EventWriteDiscarded EventType = "guard.write.discarded"
	EventDeactivated    EventType = "guard.deactivated"
)

// Source identifies which writer produced a state observation.
type Source string

const (
	SourceProbe        Source = "probe"
	SourceNotification Source = "notification"
)

// Event captures audit-friendly information about a guard instance.
type Event struct {
	Type       EventType
	GuardID    string
	Policy     Policy
	Source     Source
	From       AuthState
	To         AuthState
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// EventSink consumes guard events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged and never change guard behavior.
type EventSink interface {
	Record(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event Event) error

// Record implements EventSink.
func (f EventSinkFunc) Record(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopEventSink struct{}

func (noopEventSink) Record(context.Context, Event) error {
	return nil
}

func normalizeEventSink(s EventSink) EventSink {
	if s == nil {
		return noopEventSink{}
	}
	return s
}
