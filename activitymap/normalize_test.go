package activitymap_test

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := guard.Event{
		Type:       guard.EventStateChanged,
		GuardID:    "guard-7",
		Policy:     guard.RequireAuth,
		Source:     guard.SourceNotification,
		From:       guard.StateAuthenticated,
		To:         guard.StateUnauthenticated,
		Metadata:   map[string]any{"path": "/manager-dashboard"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "system" {
		t.Fatalf("expected actor_id system, got %q", out.ActorID)
	}
	if out.Verb != string(guard.EventStateChanged) {
		t.Fatalf("expected verb %q, got %q", guard.EventStateChanged, out.Verb)
	}
	if out.ObjectType != "route" {
		t.Fatalf("expected object_type route, got %q", out.ObjectType)
	}
	if out.ObjectID != "guard-7" {
		t.Fatalf("expected object_id guard-7, got %q", out.ObjectID)
	}
	if out.Channel != "guard" {
		t.Fatalf("expected channel guard, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["path"] != "/manager-dashboard" {
		t.Fatalf("expected metadata path, got %#v", out.Metadata["path"])
	}
	if out.Metadata[activitymap.MetadataKeyPolicy] != guard.RequireAuth.String() {
		t.Fatalf("expected policy metadata, got %#v", out.Metadata[activitymap.MetadataKeyPolicy])
	}
	if out.Metadata[activitymap.MetadataKeySource] != "notification" {
		t.Fatalf("expected source notification, got %#v", out.Metadata[activitymap.MetadataKeySource])
	}
	if out.Metadata[activitymap.MetadataKeyFromState] != guard.StateAuthenticated.String() {
		t.Fatalf("expected from_state, got %#v", out.Metadata[activitymap.MetadataKeyFromState])
	}
	if out.Metadata[activitymap.MetadataKeyToState] != guard.StateUnauthenticated.String() {
		t.Fatalf("expected to_state, got %#v", out.Metadata[activitymap.MetadataKeyToState])
	}
	if _, ok := out.Metadata[activitymap.MetadataKeyError]; ok {
		t.Fatalf("expected no error metadata")
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	metadata := map[string]any{"path": "/"}
	activitymap.Normalize(guard.Event{Type: guard.EventActivated, Metadata: metadata})

	if len(metadata) != 1 {
		t.Fatalf("expected input metadata untouched, got %#v", metadata)
	}
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	event := guard.Event{
		Type:     guard.EventProbeFailed,
		GuardID:  "guard-1",
		Err:      errors.New("NetworkError"),
		Metadata: map[string]any{"actor_id": "user-100", "path": "/onboarding"},
	}

	out := activitymap.Normalize(event,
		activitymap.WithDefaultChannel(" audit "),
		activitymap.WithDefaultObjectType("page"),
		activitymap.WithObjectIDResolver(func(e guard.Event) string {
			path, _ := e.Metadata["path"].(string)
			return path
		}),
		activitymap.WithActorFallback("ignored"),
	)

	if out.ActorID != "user-100" {
		t.Fatalf("expected actor from metadata, got %q", out.ActorID)
	}
	if out.Channel != "audit" {
		t.Fatalf("expected channel audit, got %q", out.Channel)
	}
	if out.ObjectType != "page" {
		t.Fatalf("expected object_type page, got %q", out.ObjectType)
	}
	if out.ObjectID != "/onboarding" {
		t.Fatalf("expected object_id /onboarding, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyError] != "NetworkError" {
		t.Fatalf("expected error metadata, got %#v", out.Metadata[activitymap.MetadataKeyError])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to default to now")
	}
}

func TestNormalizedAttrs(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(guard.Event{
		Type:    guard.EventWriteDiscarded,
		GuardID: "g",
		Source:  guard.SourceProbe,
	})

	attrs := out.Attrs()
	if len(attrs)%2 != 0 {
		t.Fatalf("expected key/value pairs, got %d entries", len(attrs))
	}

	seen := map[any]any{}
	for i := 0; i < len(attrs); i += 2 {
		seen[attrs[i]] = attrs[i+1]
	}
	if seen["object_id"] != "g" {
		t.Fatalf("expected object_id g, got %#v", seen["object_id"])
	}
	if seen[activitymap.MetadataKeySource] != "probe" {
		t.Fatalf("expected source probe, got %#v", seen[activitymap.MetadataKeySource])
	}
}
