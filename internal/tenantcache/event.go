package tenantcache

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of tenant lifecycle event.
type EventType string

const (
	EventTypeCreated   EventType = "CREATED"
	EventTypeUpdated   EventType = "UPDATED"
	EventTypeDeleted   EventType = "DELETED"
	EventTypeSuspended EventType = "SUSPENDED"
	EventTypeActivated EventType = "ACTIVATED"
	EventTypeExpired   EventType = "EXPIRED"
)

// Topic names for tenant lifecycle events, one per event type.
const (
	TopicTenantCreated   = "tenant.created"
	TopicTenantUpdated   = "tenant.updated"
	TopicTenantDeleted   = "tenant.deleted"
	TopicTenantSuspended = "tenant.suspended"
	TopicTenantActivated = "tenant.activated"
	TopicTenantExpired   = "tenant.expired"
)

// Topics lists every tenant topic the consumer subscribes to.
var Topics = []string{
	TopicTenantCreated,
	TopicTenantUpdated,
	TopicTenantDeleted,
	TopicTenantSuspended,
	TopicTenantActivated,
	TopicTenantExpired,
}

// topicEventTypes maps a topic back to its event type. Producers set the
// event_type field, but the topic is authoritative when the field is empty.
var topicEventTypes = map[string]EventType{
	TopicTenantCreated:   EventTypeCreated,
	TopicTenantUpdated:   EventTypeUpdated,
	TopicTenantDeleted:   EventTypeDeleted,
	TopicTenantSuspended: EventTypeSuspended,
	TopicTenantActivated: EventTypeActivated,
	TopicTenantExpired:   EventTypeExpired,
}

// EventTypeForTopic returns the event type implied by a topic name, or ""
// if the topic is not a tenant lifecycle topic.
func EventTypeForTopic(topic string) EventType {
	return topicEventTypes[topic]
}

// TenantEvent is the payload published by the tenant service for every
// lifecycle change. Events are partitioned by tenant ID, so all events for
// one tenant arrive strictly ordered.
type TenantEvent struct {
	EventType        EventType    `json:"event_type"`
	TenantID         string       `json:"tenant_id"`
	Name             string       `json:"name"`
	Slug             string       `json:"slug"`
	Type             TenantType   `json:"type"`
	Status           TenantStatus `json:"status"`
	SubscriptionPlan string       `json:"subscription_plan"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	DeletedAt        *time.Time   `json:"deleted_at,omitempty"`
	EventTimestamp   time.Time    `json:"event_timestamp"`
	EventSequence    *int64       `json:"event_sequence,omitempty"`
	Metadata         string       `json:"metadata,omitempty"` // opaque, unused by the cache
}

// Key returns the Kafka message key for partitioning.
func (e *TenantEvent) Key() string {
	return e.TenantID
}

// Validate checks that the event carries the fields its type requires.
// Returns a *MalformedEventError naming the first missing or invalid field.
func (e *TenantEvent) Validate() error {
	if e.EventType == "" {
		return &MalformedEventError{Field: "event_type", Reason: "missing"}
	}
	switch e.EventType {
	case EventTypeCreated, EventTypeUpdated, EventTypeDeleted,
		EventTypeSuspended, EventTypeActivated, EventTypeExpired:
	default:
		return &MalformedEventError{Field: "event_type", Reason: "unknown type " + string(e.EventType)}
	}

	if e.TenantID == "" {
		return &MalformedEventError{Field: "tenant_id", Reason: "missing"}
	}
	if _, err := uuid.Parse(e.TenantID); err != nil {
		return &MalformedEventError{Field: "tenant_id", Reason: "not a valid UUID"}
	}

	// Creation and update events carry the full record.
	if e.EventType == EventTypeCreated || e.EventType == EventTypeUpdated {
		if e.Name == "" {
			return &MalformedEventError{Field: "name", Reason: "missing"}
		}
		if e.Slug == "" {
			return &MalformedEventError{Field: "slug", Reason: "missing"}
		}
		if !e.Status.IsValid() {
			return &MalformedEventError{Field: "status", Reason: "invalid status " + string(e.Status)}
		}
	}

	return nil
}

// Record builds a full replacement cache record from the event payload.
// lastSyncedAt marks the time of this application.
func (e *TenantEvent) Record(lastSyncedAt time.Time) *TenantCacheRecord {
	return &TenantCacheRecord{
		TenantID:         e.TenantID,
		Name:             e.Name,
		Slug:             e.Slug,
		Type:             e.Type,
		Status:           e.Status,
		SubscriptionPlan: e.SubscriptionPlan,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		LastSyncedAt:     lastSyncedAt,
		DeletedAt:        e.DeletedAt,
	}
}
