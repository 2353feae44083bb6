// Package activitymap flattens guard lifecycle events into a
// transport-agnostic record that log sinks and audit pipelines can consume.
package activitymap

import (
	"strings"
	"time"

	"github.com/goliatone/go-guard"
)

const (
	// MetadataKeyPolicy stores the policy of the guard that emitted the event.
	MetadataKeyPolicy = "policy"
	// MetadataKeySource stores which writer produced the observation.
	MetadataKeySource = "source"
	// MetadataKeyFromState stores the state before the transition.
	MetadataKeyFromState = "from_state"
	// MetadataKeyToState stores the state after the transition.
	MetadataKeyToState = "to_state"
	// MetadataKeyError stores the error message, if any.
	MetadataKeyError = "error"
)

const (
	defaultChannel    = "guard"
	defaultObjectType = "route"
	defaultActorID    = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Attrs returns the record as alternating key/value pairs for structured loggers.
func (n Normalized) Attrs() []any {
	attrs := []any{
		"actor_id", n.ActorID,
		"object_type", n.ObjectType,
	}
	if n.ObjectID != "" {
		attrs = append(attrs, "object_id", n.ObjectID)
	}
	if n.Channel != "" {
		attrs = append(attrs, "channel", n.Channel)
	}
	for _, key := range []string{
		MetadataKeyPolicy,
		MetadataKeySource,
		MetadataKeyFromState,
		MetadataKeyToState,
		MetadataKeyError,
	} {
		if v, ok := n.Metadata[key]; ok {
			attrs = append(attrs, key, v)
		}
	}
	return attrs
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(guard.Event) string
}

// Normalize converts a guard.Event into a generic normalized shape.
func Normalize(event guard.Event, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    firstNonEmpty(actorFromMetadata(event.Metadata), options.actorFallback),
		Verb:       string(event.Type),
		ObjectType: options.objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from the event.
func WithObjectIDResolver(resolver func(guard.Event) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event metadata has none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func resolveObjectID(event guard.Event, resolver func(guard.Event) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.GuardID)
}

func actorFromMetadata(metadata map[string]any) string {
	if v, ok := metadata["actor_id"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func normalizeMetadata(event guard.Event) map[string]any {
	metadata := cloneMap(event.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	metadata[MetadataKeyPolicy] = event.Policy.String()
	metadata[MetadataKeyFromState] = event.From.String()
	metadata[MetadataKeyToState] = event.To.String()

	if event.Source != "" {
		metadata[MetadataKeySource] = string(event.Source)
	}
	if event.Err != nil {
		metadata[MetadataKeyError] = event.Err.Error()
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
