package tenantcache

import "time"

// TenantStatus represents the lifecycle status of a tenant as published by
// the tenant service. The cache never derives a status on its own.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusTrial     TenantStatus = "TRIAL"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusExpired   TenantStatus = "EXPIRED"
	TenantStatusCancelled TenantStatus = "CANCELLED"
)

// validStatuses contains all statuses the tenant service may publish.
var validStatuses = map[TenantStatus]struct{}{
	TenantStatusActive:    {},
	TenantStatusTrial:     {},
	TenantStatusSuspended: {},
	TenantStatusExpired:   {},
	TenantStatusCancelled: {},
}

// IsValid returns true if the status is one the tenant service publishes.
func (s TenantStatus) IsValid() bool {
	_, ok := validStatuses[s]
	return ok
}

// TenantType categorizes the tenant organization.
type TenantType string

const (
	TenantTypeChain             TenantType = "CHAIN"
	TenantTypeIndependent       TenantType = "INDEPENDENT"
	TenantTypeFranchise         TenantType = "FRANCHISE"
	TenantTypeManagementCompany TenantType = "MANAGEMENT_COMPANY"
	TenantTypeVacationRental    TenantType = "VACATION_RENTAL"
)

// TenantCacheRecord is the local projection of a tenant, replicated from the
// tenant service via the event stream. It is written exclusively by the
// event consumer path; business logic only reads it through CacheReader.
type TenantCacheRecord struct {
	TenantID         string       `json:"tenant_id"`
	Name             string       `json:"name"`
	Slug             string       `json:"slug"`
	Type             TenantType   `json:"type"`
	Status           TenantStatus `json:"status"`
	SubscriptionPlan string       `json:"subscription_plan"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	LastSyncedAt     time.Time    `json:"last_synced_at"`
	DeletedAt        *time.Time   `json:"deleted_at,omitempty"` // Soft delete support
}

// IsDeleted returns true if the record has been soft-deleted.
func (r *TenantCacheRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// IsActive returns true if the tenant is ACTIVE and not soft-deleted.
func (r *TenantCacheRecord) IsActive() bool {
	return r.Status == TenantStatusActive && !r.IsDeleted()
}

// IsOperational returns true if the tenant may be used for normal business
// operations: status ACTIVE or TRIAL and not soft-deleted.
func (r *TenantCacheRecord) IsOperational() bool {
	return (r.Status == TenantStatusActive || r.Status == TenantStatusTrial) && !r.IsDeleted()
}

// IsStale returns true if the record has not been refreshed by an event
// within the given threshold. A record that has never been synced is stale.
func (r *TenantCacheRecord) IsStale(threshold time.Duration) bool {
	if r.LastSyncedAt.IsZero() {
		return true
	}
	return time.Since(r.LastSyncedAt) > threshold
}
