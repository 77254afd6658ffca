package tenantcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/red2n/modern-reservation-sub006/pkg/logger"
)

// ApplyResult reports how an event was handled. The skip outcomes are
// deliberate no-ops, not failures: a DELETED or status event racing ahead of
// its CREATED event converges once the creation is delivered.
type ApplyResult int

const (
	// ResultApplied means the event mutated the cache.
	ResultApplied ApplyResult = iota
	// ResultSkippedUnknownTenant means a non-creating event arrived for a
	// tenant the cache has never seen.
	ResultSkippedUnknownTenant
	// ResultSkippedDeleted means a status event arrived for a soft-deleted
	// tenant; deletion is monotonic, so the event is ignored.
	ResultSkippedDeleted
)

// String returns the result name for logs and metrics labels.
func (r ApplyResult) String() string {
	switch r {
	case ResultApplied:
		return "applied"
	case ResultSkippedUnknownTenant:
		return "skipped_unknown_tenant"
	case ResultSkippedDeleted:
		return "skipped_deleted"
	default:
		return "unknown"
	}
}

// eventStatus maps status-changing event types to the status they impose.
var eventStatus = map[EventType]TenantStatus{
	EventTypeSuspended: TenantStatusSuspended,
	EventTypeActivated: TenantStatusActive,
	EventTypeExpired:   TenantStatusExpired,
}

// Applier translates tenant events into cache store operations. Every
// operation is idempotent: replaying an event produces the same final state,
// which the at-least-once delivery of the stream requires.
type Applier struct {
	store CacheStore
	log   *logger.Logger
	now   func() time.Time
}

// NewApplier creates a new Applier writing to the given store.
func NewApplier(store CacheStore, log *logger.Logger) *Applier {
	return &Applier{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Apply validates the event and applies it to the store. Malformed events
// and store failures are returned as errors so the consumer leaves the event
// uncommitted; expected races are absorbed as skip results.
func (a *Applier) Apply(ctx context.Context, event *TenantEvent) (ApplyResult, error) {
	if err := event.Validate(); err != nil {
		return ResultApplied, err
	}

	switch event.EventType {
	case EventTypeCreated, EventTypeUpdated:
		return a.applyUpsert(ctx, event)
	case EventTypeDeleted:
		return a.applyDelete(ctx, event)
	case EventTypeSuspended, EventTypeActivated, EventTypeExpired:
		return a.applyStatus(ctx, event)
	default:
		// Validate already rejects unknown types.
		return ResultApplied, &MalformedEventError{Field: "event_type", Reason: "unknown type " + string(event.EventType)}
	}
}

// applyUpsert handles CREATED and UPDATED with the same code path: both
// build a full replacement record from the payload (last-write-wins, no
// per-field versioning). A fresh CREATED for a previously deleted tenant
// therefore clears the soft delete; the tenant service is authoritative.
func (a *Applier) applyUpsert(ctx context.Context, event *TenantEvent) (ApplyResult, error) {
	record := event.Record(a.now().UTC())
	if err := a.store.Upsert(ctx, record); err != nil {
		return ResultApplied, fmt.Errorf("apply %s for tenant %s: %w", event.EventType, event.TenantID, err)
	}
	return ResultApplied, nil
}

// applyDelete soft-deletes the record, preferring the event's deletion
// timestamp, then the event timestamp, then the current time.
func (a *Applier) applyDelete(ctx context.Context, event *TenantEvent) (ApplyResult, error) {
	deletedAt := a.now().UTC()
	if event.DeletedAt != nil {
		deletedAt = *event.DeletedAt
	} else if !event.EventTimestamp.IsZero() {
		deletedAt = event.EventTimestamp
	}

	err := a.store.MarkDeleted(ctx, event.TenantID, deletedAt)
	if errors.Is(err, ErrTenantNotFound) {
		// Delete arrived before the creation event; no phantom record is
		// created and convergence happens once CREATED is delivered.
		a.log.Warn("skipping DELETED event for unknown tenant",
			zap.String("tenant_id", event.TenantID),
		)
		return ResultSkippedUnknownTenant, nil
	}
	if err != nil {
		return ResultApplied, fmt.Errorf("apply DELETED for tenant %s: %w", event.TenantID, err)
	}

	return ResultApplied, nil
}

// applyStatus handles SUSPENDED, ACTIVATED and EXPIRED as partial status
// updates. A deleted record is never resurrected.
func (a *Applier) applyStatus(ctx context.Context, event *TenantEvent) (ApplyResult, error) {
	status := eventStatus[event.EventType]

	err := a.store.UpdateStatus(ctx, event.TenantID, status, a.now().UTC())
	switch {
	case errors.Is(err, ErrTenantNotFound):
		a.log.Warn("skipping status event for unknown tenant",
			zap.String("tenant_id", event.TenantID),
			zap.String("event_type", string(event.EventType)),
		)
		return ResultSkippedUnknownTenant, nil
	case errors.Is(err, ErrTenantDeleted):
		a.log.Warn("skipping status event for soft-deleted tenant",
			zap.String("tenant_id", event.TenantID),
			zap.String("event_type", string(event.EventType)),
		)
		return ResultSkippedDeleted, nil
	case err != nil:
		return ResultApplied, fmt.Errorf("apply %s for tenant %s: %w", event.EventType, event.TenantID, err)
	}

	return ResultApplied, nil
}
