package tenantcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/red2n/modern-reservation-sub006/pkg/logger"
	"github.com/red2n/modern-reservation-sub006/pkg/redisclient"
)

// ReaderConfig holds CacheReader tuning.
type ReaderConfig struct {
	// StaleThreshold is the age past which a record counts as stale in
	// statistics.
	StaleThreshold time.Duration
	// OperationalTTL is how long a cached operational flag stays valid in
	// redis. Zero disables the redis layer even when a client is present.
	OperationalTTL time.Duration
}

// DefaultReaderConfig returns the default reader configuration.
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		StaleThreshold: time.Hour,
		OperationalTTL: 30 * time.Second,
	}
}

// CacheReader is the only interface business logic uses to query tenant
// state. It never writes the cache; all writes flow through the consumer.
type CacheReader struct {
	store  CacheStore
	redis  *redisclient.Client // optional hot-path cache, nil disables
	log    *logger.Logger
	config *ReaderConfig
}

// NewCacheReader creates a reader over the given store. redis may be nil.
func NewCacheReader(store CacheStore, redis *redisclient.Client, log *logger.Logger, config *ReaderConfig) *CacheReader {
	if config == nil {
		config = DefaultReaderConfig()
	}
	return &CacheReader{
		store:  store,
		redis:  redis,
		log:    log,
		config: config,
	}
}

// IsOperational reports whether the tenant may be used for normal business
// operations. An unknown tenant is not operational, not an error: during
// cache convergence the service degrades to treating the tenant as absent.
func (r *CacheReader) IsOperational(ctx context.Context, tenantID string) (bool, error) {
	if cached, ok := r.cachedOperational(ctx, tenantID); ok {
		return cached, nil
	}

	record, err := r.store.Get(ctx, tenantID)
	if errors.Is(err, ErrTenantNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	operational := record.IsOperational()
	r.cacheOperational(ctx, tenantID, operational)

	return operational, nil
}

// RequireOperational returns nil if the tenant is operational,
// ErrTenantNotFound if it is unknown, and ErrTenantNotOperational otherwise.
func (r *CacheReader) RequireOperational(ctx context.Context, tenantID string) error {
	record, err := r.store.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if !record.IsOperational() {
		return fmt.Errorf("tenant %s (status %s): %w", tenantID, record.Status, ErrTenantNotOperational)
	}
	return nil
}

// Get retrieves the cache record for a tenant, returning ErrTenantNotFound
// if the tenant has never been seen. Soft-deleted records are returned as-is;
// callers branch on IsDeleted.
func (r *CacheReader) Get(ctx context.Context, tenantID string) (*TenantCacheRecord, error) {
	return r.store.Get(ctx, tenantID)
}

// GetBySlug retrieves a non-deleted record by its slug.
func (r *CacheReader) GetBySlug(ctx context.Context, slug string) (*TenantCacheRecord, error) {
	return r.store.GetBySlug(ctx, slug)
}

// Search returns non-deleted tenants matching the term in name or slug,
// paged, with the total match count.
func (r *CacheReader) Search(ctx context.Context, term string, page, limit int) ([]*TenantCacheRecord, int, error) {
	return r.store.Search(ctx, term, page, limit)
}

// GetStatistics aggregates counts by status, operational count and stale
// count using the configured staleness threshold.
func (r *CacheReader) GetStatistics(ctx context.Context) (*Statistics, error) {
	byStatus, err := r.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	operational, err := r.store.CountOperational(ctx)
	if err != nil {
		return nil, err
	}

	stale, err := r.store.CountStale(ctx, r.config.StaleThreshold)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}

	return &Statistics{
		ByStatus:    byStatus,
		Operational: operational,
		Stale:       stale,
		Total:       total,
	}, nil
}

// operationalKey is the redis key for a tenant's cached operational flag.
func operationalKey(tenantID string) string {
	return "tenant_cache:operational:" + tenantID
}

// cachedOperational reads the operational flag from redis. The second return
// value reports whether a usable cached value was found.
func (r *CacheReader) cachedOperational(ctx context.Context, tenantID string) (bool, bool) {
	if r.redis == nil || r.config.OperationalTTL <= 0 {
		return false, false
	}

	value, err := r.redis.Get(ctx, operationalKey(tenantID))
	if err != nil {
		if !errors.Is(err, redisclient.ErrKeyNotFound) {
			r.log.Warn("operational flag cache read failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		}
		return false, false
	}

	return value == "1", true
}

// cacheOperational writes the operational flag to redis with the configured
// TTL. Failures are logged and ignored; the store remains authoritative.
func (r *CacheReader) cacheOperational(ctx context.Context, tenantID string, operational bool) {
	if r.redis == nil || r.config.OperationalTTL <= 0 {
		return
	}

	value := "0"
	if operational {
		value = "1"
	}
	if err := r.redis.Set(ctx, operationalKey(tenantID), value, r.config.OperationalTTL); err != nil {
		r.log.Warn("operational flag cache write failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}
