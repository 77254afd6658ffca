package tenantcache

import (
	"context"
	"time"
)

// CacheStore defines keyed storage for tenant cache records. It is written
// only by the event application path; all reads from business logic go
// through CacheReader.
type CacheStore interface {
	// Upsert inserts the record or overwrites all fields of an existing
	// record with the same tenant ID. Last-write-wins is intentional:
	// per-tenant ordering is guaranteed upstream by the stream partitioning.
	Upsert(ctx context.Context, record *TenantCacheRecord) error
	// Get retrieves a record by tenant ID, including soft-deleted records.
	// Returns ErrTenantNotFound if the tenant has never been seen.
	Get(ctx context.Context, tenantID string) (*TenantCacheRecord, error)
	// GetBySlug retrieves a non-deleted record by slug.
	GetBySlug(ctx context.Context, slug string) (*TenantCacheRecord, error)
	// MarkDeleted sets the deletion timestamp on an existing record.
	// Returns ErrTenantNotFound if the tenant is unknown; callers decide
	// whether that is an error (a delete-before-create race is expected).
	MarkDeleted(ctx context.Context, tenantID string, deletedAt time.Time) error
	// UpdateStatus updates status and lastSyncedAt only. Returns
	// ErrTenantNotFound for unknown tenants and ErrTenantDeleted for
	// soft-deleted ones; a status event never resurrects a deleted record.
	UpdateStatus(ctx context.Context, tenantID string, status TenantStatus, syncedAt time.Time) error

	// FindAllOperational returns all records with status ACTIVE or TRIAL,
	// excluding soft-deleted ones.
	FindAllOperational(ctx context.Context) ([]*TenantCacheRecord, error)
	// FindByStatus returns non-deleted records with the given status.
	FindByStatus(ctx context.Context, status TenantStatus) ([]*TenantCacheRecord, error)
	// FindStale returns non-deleted records whose lastSyncedAt is unset or
	// older than the threshold.
	FindStale(ctx context.Context, threshold time.Duration) ([]*TenantCacheRecord, error)
	// FindDeleted returns soft-deleted records, for audit only.
	FindDeleted(ctx context.Context) ([]*TenantCacheRecord, error)
	// Search returns non-deleted records whose name or slug matches the
	// term, paged, with the total match count.
	Search(ctx context.Context, term string, page, limit int) ([]*TenantCacheRecord, int, error)

	// CountByStatus counts non-deleted records per status.
	CountByStatus(ctx context.Context) (map[TenantStatus]int, error)
	// CountOperational counts non-deleted records with status ACTIVE or TRIAL.
	CountOperational(ctx context.Context) (int, error)
	// CountStale counts non-deleted records stale past the threshold.
	CountStale(ctx context.Context, threshold time.Duration) (int, error)
}

// Statistics aggregates cache-wide counts for monitoring and the reader's
// GetStatistics call.
type Statistics struct {
	ByStatus    map[TenantStatus]int `json:"by_status"`
	Operational int                  `json:"operational"`
	Stale       int                  `json:"stale"`
	Total       int                  `json:"total"`
}
