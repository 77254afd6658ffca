package tenantcache

import (
	"testing"
	"time"
)

func TestTenantStatusIsValid(t *testing.T) {
	tests := []struct {
		status   TenantStatus
		expected bool
	}{
		{TenantStatusActive, true},
		{TenantStatusTrial, true},
		{TenantStatusSuspended, true},
		{TenantStatusExpired, true},
		{TenantStatusCancelled, true},
		{TenantStatus("INVALID"), false},
		{TenantStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.expected {
				t.Errorf("IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecordIsDeleted(t *testing.T) {
	record := &TenantCacheRecord{Status: TenantStatusActive}
	if record.IsDeleted() {
		t.Error("record without deleted_at should not be deleted")
	}

	now := time.Now()
	record.DeletedAt = &now
	if !record.IsDeleted() {
		t.Error("record with deleted_at should be deleted")
	}
}

func TestRecordIsActive(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		status   TenantStatus
		deleted  *time.Time
		expected bool
	}{
		{"active", TenantStatusActive, nil, true},
		{"trial is not active", TenantStatusTrial, nil, false},
		{"suspended", TenantStatusSuspended, nil, false},
		{"active but deleted", TenantStatusActive, &now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &TenantCacheRecord{Status: tt.status, DeletedAt: tt.deleted}
			if got := record.IsActive(); got != tt.expected {
				t.Errorf("IsActive() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecordIsOperational(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		status   TenantStatus
		deleted  *time.Time
		expected bool
	}{
		{"active", TenantStatusActive, nil, true},
		{"trial", TenantStatusTrial, nil, true},
		{"suspended", TenantStatusSuspended, nil, false},
		{"expired", TenantStatusExpired, nil, false},
		{"cancelled", TenantStatusCancelled, nil, false},
		{"active but deleted", TenantStatusActive, &now, false},
		{"trial but deleted", TenantStatusTrial, &now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &TenantCacheRecord{Status: tt.status, DeletedAt: tt.deleted}
			if got := record.IsOperational(); got != tt.expected {
				t.Errorf("IsOperational() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecordIsStale(t *testing.T) {
	threshold := time.Hour

	tests := []struct {
		name         string
		lastSyncedAt time.Time
		expected     bool
	}{
		{"never synced", time.Time{}, true},
		{"synced two hours ago", time.Now().Add(-2 * time.Hour), true},
		{"synced just now", time.Now(), false},
		{"synced thirty minutes ago", time.Now().Add(-30 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &TenantCacheRecord{LastSyncedAt: tt.lastSyncedAt}
			if got := record.IsStale(threshold); got != tt.expected {
				t.Errorf("IsStale(%v) = %v, want %v", threshold, got, tt.expected)
			}
		})
	}
}
