package tenantcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tenantCacheColumns = `tenant_id, name, slug, type, status, COALESCE(subscription_plan, '') as subscription_plan,
	       created_at, updated_at, COALESCE(last_synced_at, 'epoch'::timestamptz) as last_synced_at, deleted_at`

// PostgresStore implements CacheStore using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Upsert inserts or fully replaces the record for the tenant ID.
func (s *PostgresStore) Upsert(ctx context.Context, record *TenantCacheRecord) error {
	query := `
		INSERT INTO tenant_cache (tenant_id, name, slug, type, status, subscription_plan,
		                          created_at, updated_at, last_synced_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			subscription_plan = EXCLUDED.subscription_plan,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			last_synced_at = EXCLUDED.last_synced_at,
			deleted_at = EXCLUDED.deleted_at
	`
	_, err := s.pool.Exec(ctx, query,
		record.TenantID,
		record.Name,
		record.Slug,
		record.Type,
		record.Status,
		nullStringOrValue(record.SubscriptionPlan),
		record.CreatedAt,
		record.UpdatedAt,
		record.LastSyncedAt,
		record.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert tenant %s: %v", ErrStoreUnavailable, record.TenantID, err)
	}
	return nil
}

// Get retrieves a record by tenant ID, soft-deleted records included.
func (s *PostgresStore) Get(ctx context.Context, tenantID string) (*TenantCacheRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenant_cache WHERE tenant_id = $1`, tenantCacheColumns)
	return s.queryOne(ctx, query, tenantID)
}

// GetBySlug retrieves a non-deleted record by slug.
func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (*TenantCacheRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenant_cache WHERE slug = $1 AND deleted_at IS NULL`, tenantCacheColumns)
	return s.queryOne(ctx, query, slug)
}

// MarkDeleted sets the deletion timestamp on an existing record. Deletion is
// monotonic: an already-deleted record keeps its original timestamp.
func (s *PostgresStore) MarkDeleted(ctx context.Context, tenantID string, deletedAt time.Time) error {
	query := `
		UPDATE tenant_cache
		SET deleted_at = $2, last_synced_at = $3
		WHERE tenant_id = $1 AND deleted_at IS NULL
	`
	result, err := s.pool.Exec(ctx, query, tenantID, deletedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: mark deleted tenant %s: %v", ErrStoreUnavailable, tenantID, err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish "unknown tenant" from "already deleted".
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM tenant_cache WHERE tenant_id = $1)`, tenantID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("%w: mark deleted tenant %s: %v", ErrStoreUnavailable, tenantID, err)
		}
		if !exists {
			return ErrTenantNotFound
		}
	}

	return nil
}

// UpdateStatus updates status and lastSyncedAt of a non-deleted record.
func (s *PostgresStore) UpdateStatus(ctx context.Context, tenantID string, status TenantStatus, syncedAt time.Time) error {
	query := `
		UPDATE tenant_cache
		SET status = $2, last_synced_at = $3
		WHERE tenant_id = $1 AND deleted_at IS NULL
	`
	result, err := s.pool.Exec(ctx, query, tenantID, status, syncedAt)
	if err != nil {
		return fmt.Errorf("%w: update status tenant %s: %v", ErrStoreUnavailable, tenantID, err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM tenant_cache WHERE tenant_id = $1)`, tenantID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("%w: update status tenant %s: %v", ErrStoreUnavailable, tenantID, err)
		}
		if !exists {
			return ErrTenantNotFound
		}
		return ErrTenantDeleted
	}

	return nil
}

// FindAllOperational returns all non-deleted ACTIVE or TRIAL records.
func (s *PostgresStore) FindAllOperational(ctx context.Context) ([]*TenantCacheRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_cache
		WHERE status IN ($1, $2) AND deleted_at IS NULL
		ORDER BY name
	`, tenantCacheColumns)
	return s.queryMany(ctx, query, TenantStatusActive, TenantStatusTrial)
}

// FindByStatus returns non-deleted records with the given status.
func (s *PostgresStore) FindByStatus(ctx context.Context, status TenantStatus) ([]*TenantCacheRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_cache
		WHERE status = $1 AND deleted_at IS NULL
		ORDER BY name
	`, tenantCacheColumns)
	return s.queryMany(ctx, query, status)
}

// FindStale returns non-deleted records stale past the threshold.
func (s *PostgresStore) FindStale(ctx context.Context, threshold time.Duration) ([]*TenantCacheRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_cache
		WHERE deleted_at IS NULL AND (last_synced_at IS NULL OR last_synced_at < $1)
		ORDER BY last_synced_at NULLS FIRST
	`, tenantCacheColumns)
	cutoff := time.Now().UTC().Add(-threshold)
	return s.queryMany(ctx, query, cutoff)
}

// FindDeleted returns soft-deleted records, for audit.
func (s *PostgresStore) FindDeleted(ctx context.Context) ([]*TenantCacheRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_cache
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
	`, tenantCacheColumns)
	return s.queryMany(ctx, query)
}

// Search returns non-deleted records matching term in name or slug, paged.
func (s *PostgresStore) Search(ctx context.Context, term string, page, limit int) ([]*TenantCacheRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + term + "%"

	countQuery := `
		SELECT COUNT(*) FROM tenant_cache
		WHERE deleted_at IS NULL AND (name ILIKE $1 OR slug ILIKE $1)
	`
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: search count: %v", ErrStoreUnavailable, err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM tenant_cache
		WHERE deleted_at IS NULL AND (name ILIKE $1 OR slug ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, tenantCacheColumns)
	records, err := s.queryMany(ctx, query, pattern, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// CountByStatus counts non-deleted records per status.
func (s *PostgresStore) CountByStatus(ctx context.Context) (map[TenantStatus]int, error) {
	query := `
		SELECT status, COUNT(*) FROM tenant_cache
		WHERE deleted_at IS NULL
		GROUP BY status
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: count by status: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	counts := make(map[TenantStatus]int)
	for rows.Next() {
		var status TenantStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("%w: count by status: %v", ErrStoreUnavailable, err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// CountOperational counts non-deleted ACTIVE or TRIAL records.
func (s *PostgresStore) CountOperational(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*) FROM tenant_cache
		WHERE status IN ($1, $2) AND deleted_at IS NULL
	`
	var count int
	err := s.pool.QueryRow(ctx, query, TenantStatusActive, TenantStatusTrial).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count operational: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// CountStale counts non-deleted records stale past the threshold.
func (s *PostgresStore) CountStale(ctx context.Context, threshold time.Duration) (int, error) {
	query := `
		SELECT COUNT(*) FROM tenant_cache
		WHERE deleted_at IS NULL AND (last_synced_at IS NULL OR last_synced_at < $1)
	`
	var count int
	err := s.pool.QueryRow(ctx, query, time.Now().UTC().Add(-threshold)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count stale: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...interface{}) (*TenantCacheRecord, error) {
	record := &TenantCacheRecord{}
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&record.TenantID,
		&record.Name,
		&record.Slug,
		&record.Type,
		&record.Status,
		&record.SubscriptionPlan,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.LastSyncedAt,
		&record.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

func (s *PostgresStore) queryMany(ctx context.Context, query string, args ...interface{}) ([]*TenantCacheRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	records := make([]*TenantCacheRecord, 0)
	for rows.Next() {
		record := &TenantCacheRecord{}
		err := rows.Scan(
			&record.TenantID,
			&record.Name,
			&record.Slug,
			&record.Type,
			&record.Status,
			&record.SubscriptionPlan,
			&record.CreatedAt,
			&record.UpdatedAt,
			&record.LastSyncedAt,
			&record.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// nullStringOrValue returns nil for empty strings, otherwise returns the value
func nullStringOrValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
