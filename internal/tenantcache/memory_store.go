package tenantcache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of CacheStore for tests and
// local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*TenantCacheRecord
	bySlug  map[string]string // slug -> tenantID, non-deleted records only
}

// NewMemoryStore creates a new in-memory cache store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*TenantCacheRecord),
		bySlug:  make(map[string]string),
	}
}

// Upsert inserts or fully replaces the record for the tenant ID.
func (s *MemoryStore) Upsert(ctx context.Context, record *TenantCacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.TenantID]; ok {
		delete(s.bySlug, existing.Slug)
	}

	copied := s.copyRecord(record)
	s.records[record.TenantID] = copied
	if !copied.IsDeleted() {
		s.bySlug[copied.Slug] = copied.TenantID
	}

	return nil
}

// Get retrieves a record by tenant ID, soft-deleted records included.
func (s *MemoryStore) Get(ctx context.Context, tenantID string) (*TenantCacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[tenantID]
	if !ok {
		return nil, ErrTenantNotFound
	}

	return s.copyRecord(record), nil
}

// GetBySlug retrieves a non-deleted record by slug.
func (s *MemoryStore) GetBySlug(ctx context.Context, slug string) (*TenantCacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrTenantNotFound
	}

	return s.copyRecord(s.records[tenantID]), nil
}

// MarkDeleted sets the deletion timestamp on an existing record.
func (s *MemoryStore) MarkDeleted(ctx context.Context, tenantID string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[tenantID]
	if !ok {
		return ErrTenantNotFound
	}
	if record.IsDeleted() {
		// Deletion is monotonic; keep the original timestamp.
		return nil
	}

	t := deletedAt
	record.DeletedAt = &t
	record.LastSyncedAt = time.Now().UTC()
	delete(s.bySlug, record.Slug)

	return nil
}

// UpdateStatus updates status and lastSyncedAt of a non-deleted record.
func (s *MemoryStore) UpdateStatus(ctx context.Context, tenantID string, status TenantStatus, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[tenantID]
	if !ok {
		return ErrTenantNotFound
	}
	if record.IsDeleted() {
		return ErrTenantDeleted
	}

	record.Status = status
	record.LastSyncedAt = syncedAt

	return nil
}

// FindAllOperational returns all non-deleted ACTIVE or TRIAL records.
func (s *MemoryStore) FindAllOperational(ctx context.Context) ([]*TenantCacheRecord, error) {
	return s.filter(func(r *TenantCacheRecord) bool {
		return r.IsOperational()
	}), nil
}

// FindByStatus returns non-deleted records with the given status.
func (s *MemoryStore) FindByStatus(ctx context.Context, status TenantStatus) ([]*TenantCacheRecord, error) {
	return s.filter(func(r *TenantCacheRecord) bool {
		return !r.IsDeleted() && r.Status == status
	}), nil
}

// FindStale returns non-deleted records stale past the threshold.
func (s *MemoryStore) FindStale(ctx context.Context, threshold time.Duration) ([]*TenantCacheRecord, error) {
	return s.filter(func(r *TenantCacheRecord) bool {
		return !r.IsDeleted() && r.IsStale(threshold)
	}), nil
}

// FindDeleted returns soft-deleted records, for audit.
func (s *MemoryStore) FindDeleted(ctx context.Context) ([]*TenantCacheRecord, error) {
	return s.filter(func(r *TenantCacheRecord) bool {
		return r.IsDeleted()
	}), nil
}

// Search returns non-deleted records matching term in name or slug, paged.
func (s *MemoryStore) Search(ctx context.Context, term string, page, limit int) ([]*TenantCacheRecord, int, error) {
	lower := strings.ToLower(term)
	matches := s.filter(func(r *TenantCacheRecord) bool {
		if r.IsDeleted() {
			return false
		}
		return strings.Contains(strings.ToLower(r.Name), lower) ||
			strings.Contains(strings.ToLower(r.Slug), lower)
	})

	total := len(matches)

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []*TenantCacheRecord{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	return matches[start:end], total, nil
}

// CountByStatus counts non-deleted records per status.
func (s *MemoryStore) CountByStatus(ctx context.Context) (map[TenantStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[TenantStatus]int)
	for _, r := range s.records {
		if r.IsDeleted() {
			continue
		}
		counts[r.Status]++
	}

	return counts, nil
}

// CountOperational counts non-deleted ACTIVE or TRIAL records.
func (s *MemoryStore) CountOperational(ctx context.Context) (int, error) {
	return len(s.filter(func(r *TenantCacheRecord) bool {
		return r.IsOperational()
	})), nil
}

// CountStale counts non-deleted records stale past the threshold.
func (s *MemoryStore) CountStale(ctx context.Context, threshold time.Duration) (int, error) {
	return len(s.filter(func(r *TenantCacheRecord) bool {
		return !r.IsDeleted() && r.IsStale(threshold)
	})), nil
}

// filter returns deep copies of all records matching the predicate, sorted
// by tenant ID for deterministic ordering.
func (s *MemoryStore) filter(match func(*TenantCacheRecord) bool) []*TenantCacheRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*TenantCacheRecord, 0)
	for _, r := range s.records {
		if match(r) {
			results = append(results, s.copyRecord(r))
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].TenantID < results[j].TenantID
	})

	return results
}

// copyRecord makes a deep copy so callers cannot mutate stored state.
func (s *MemoryStore) copyRecord(record *TenantCacheRecord) *TenantCacheRecord {
	copied := *record
	if record.DeletedAt != nil {
		t := *record.DeletedAt
		copied.DeletedAt = &t
	}
	return &copied
}
