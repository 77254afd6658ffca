package tenantcache

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotFound is returned when no record exists for a tenant ID.
	ErrTenantNotFound = errors.New("tenant not found in cache")
	// ErrTenantNotOperational is returned when a tenant exists but is not
	// in an operational state (suspended, expired, cancelled or deleted).
	ErrTenantNotOperational = errors.New("tenant is not operational")
	// ErrTenantDeleted is returned by store mutations that refuse to touch
	// a soft-deleted record.
	ErrTenantDeleted = errors.New("tenant is soft-deleted")
	// ErrStoreUnavailable wraps persistence failures so the consumer can
	// leave the event uncommitted and rely on redelivery.
	ErrStoreUnavailable = errors.New("cache store unavailable")
)

// MalformedEventError indicates an inbound event is missing required fields
// or carries invalid values. The consumer logs it and leaves the event to
// the stream's redelivery/dead-letter policy.
type MalformedEventError struct {
	Field  string
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed tenant event: field %q: %s", e.Field, e.Reason)
}
