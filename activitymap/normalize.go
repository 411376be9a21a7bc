// Package activitymap flattens auth activity events into a generic
// actor/verb/object record that downstream audit pipelines can ingest
// without knowing the auth package's types.
package activitymap

import (
	"strings"
	"time"

	auth "github.com/solutionrh/go-auth"
)

// Metadata keys added to the normalized record when the source event
// carries the corresponding fields.
const (
	MetadataKeyActorType  = "actor_type"
	MetadataKeyFromStatus = "from_status"
	MetadataKeyToStatus   = "to_status"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// Normalized is the flattened activity record.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*mapper)

type mapper struct {
	channel       string
	objectType    string
	actorFallback string
	objectID      func(auth.ActivityEvent) string
}

// WithDefaultChannel overrides the channel stamped on every record.
func WithDefaultChannel(channel string) Option {
	return func(m *mapper) {
		m.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType overrides the object type stamped on every record.
func WithDefaultObjectType(objectType string) Option {
	return func(m *mapper) {
		m.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides how the object id is derived from an event.
// The default takes the event's account id.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(m *mapper) {
		m.objectID = resolver
	}
}

// WithActorFallback sets the actor id used when the event names no actor
// and no account.
func WithActorFallback(actorID string) Option {
	return func(m *mapper) {
		m.actorFallback = strings.TrimSpace(actorID)
	}
}

// Normalize maps an auth.ActivityEvent onto the generic record shape.
// The source event is never mutated.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	m := mapper{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}

	when := event.OccurredAt
	if when.IsZero() {
		when = time.Now().UTC()
	}

	return Normalized{
		ActorID:    m.actorID(event),
		Verb:       string(event.EventType),
		ObjectType: m.objectType,
		ObjectID:   m.resolveObjectID(event),
		Channel:    m.channel,
		Metadata:   buildMetadata(event),
		OccurredAt: when,
	}
}

// actorID prefers the explicit actor, then the affected account, then the
// configured fallback. Lifecycle jobs often carry neither actor nor account.
func (m mapper) actorID(event auth.ActivityEvent) string {
	if id := strings.TrimSpace(event.Actor.ID); id != "" {
		return id
	}
	if id := strings.TrimSpace(event.AccountID); id != "" {
		return id
	}
	return m.actorFallback
}

func (m mapper) resolveObjectID(event auth.ActivityEvent) string {
	if m.objectID != nil {
		return strings.TrimSpace(m.objectID(event))
	}
	return strings.TrimSpace(event.AccountID)
}

// buildMetadata copies the event metadata and folds in the actor type and
// status transition. A caller-supplied actor_type wins over the derived one.
func buildMetadata(event auth.ActivityEvent) map[string]any {
	actorType := strings.TrimSpace(event.Actor.Type)
	if len(event.Metadata) == 0 && actorType == "" &&
		event.FromStatus == "" && event.ToStatus == "" {
		return nil
	}

	out := make(map[string]any, len(event.Metadata)+3)
	for k, v := range event.Metadata {
		out[k] = v
	}

	if actorType != "" {
		if _, taken := out[MetadataKeyActorType]; !taken {
			out[MetadataKeyActorType] = actorType
		}
	}
	if event.FromStatus != "" {
		out[MetadataKeyFromStatus] = string(event.FromStatus)
	}
	if event.ToStatus != "" {
		out[MetadataKeyToStatus] = string(event.ToStatus)
	}

	return out
}
