package activitymap

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-accounts"
)

const (
	// MetadataKeyActorType stores accounts.ActorRef.Type
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromStatus stores the source account status of a transition
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the target account status of a transition
	MetadataKeyToStatus = "to_status"
)

const (
	defaultChannel    = "accounts"
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// Record is the flat activity shape shipped to logs and audit stores.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization.
type Option func(*options)

type options struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// WithChannel sets the channel stamped on every record.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the object type stamped on every record.
func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when neither actor nor account is known.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the clock used for events missing OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Normalize flattens an account activity event.
func Normalize(event accounts.ActivityEvent, opts ...Option) Record {
	o := buildOptions(opts...)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now().UTC()
	}

	return Record{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(event.AccountID),
			o.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   strings.TrimSpace(event.AccountID),
		Channel:    o.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt,
	}
}

// NewZapSink returns an ActivitySink writing every event as one structured
// log line.
func NewZapSink(logger *zap.Logger, opts ...Option) accounts.ActivitySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return accounts.ActivitySinkFunc(func(_ context.Context, event accounts.ActivityEvent) error {
		rec := Normalize(event, opts...)
		logger.Info("activity",
			zap.String("verb", rec.Verb),
			zap.String("actor_id", rec.ActorID),
			zap.String("object_type", rec.ObjectType),
			zap.String("object_id", rec.ObjectID),
			zap.String("channel", rec.Channel),
			zap.Any("metadata", rec.Metadata),
			zap.Time("occurred_at", rec.OccurredAt),
		)
		return nil
	})
}

func buildOptions(opts ...Option) options {
	o := options{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func metadata(event accounts.ActivityEvent) map[string]any {
	var out map[string]any
	set := func(key string, value any, overwrite bool) {
		if out == nil {
			out = map[string]any{}
		}
		if _, exists := out[key]; exists && !overwrite {
			return
		}
		out[key] = value
	}

	for k, v := range event.Metadata {
		set(k, v, true)
	}
	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		set(MetadataKeyActorType, actorType, false)
	}
	if event.FromStatus != "" {
		set(MetadataKeyFromStatus, string(event.FromStatus), true)
	}
	if event.ToStatus != "" {
		set(MetadataKeyToStatus, string(event.ToStatus), true)
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
