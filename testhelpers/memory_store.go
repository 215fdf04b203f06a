package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"consultapp/internal/models"
)

// MemoryTenantRepo is an in-process repositories.TenantRepository with the
// same conditional-write rules as the postgres one.
type MemoryTenantRepo struct {
	mu      sync.Mutex
	records map[string]*models.Tenant
	calls   atomic.Int64

	// Err, when set, is returned by every call. Wrap models.ErrUnavailable
	// to stand in for a connection failure.
	Err error
}

func NewMemoryTenantRepo() *MemoryTenantRepo {
	return &MemoryTenantRepo{records: make(map[string]*models.Tenant)}
}

// Calls is the number of store calls made so far
func (m *MemoryTenantRepo) Calls() int64 {
	return m.calls.Load()
}

// Put stores a record as-is, bypassing ownership checks
func (m *MemoryTenantRepo) Put(t *models.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := t.Clone()
	if c.Version == 0 {
		c.Version = 1
	}
	m.records[c.TenantID] = c
}

func (m *MemoryTenantRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryTenantRepo) enter(ctx context.Context) error {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Err
}

func (m *MemoryTenantRepo) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[tenantID].Clone(), nil
}

func (m *MemoryTenantRepo) byOwner(ownerID string) []*models.Tenant {
	var out []*models.Tenant
	for _, t := range m.records {
		if t.OwnerID == ownerID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].TenantID < out[j].TenantID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (m *MemoryTenantRepo) GetByOwner(ctx context.Context, ownerID string) (*models.Tenant, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := m.byOwner(ownerID)
	if len(owned) == 0 {
		return nil, nil
	}
	return owned[0], nil
}

func (m *MemoryTenantRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Tenant, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byOwner(ownerID), nil
}

func (m *MemoryTenantRepo) ListDuplicateOwners(ctx context.Context, limit int) ([]string, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, t := range m.records {
		counts[t.OwnerID]++
	}
	var owners []string
	for owner, n := range counts {
		if n > 1 {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	if limit > 0 && len(owners) > limit {
		owners = owners[:limit]
	}
	return owners, nil
}

// upsert must be called with the lock held
func (m *MemoryTenantRepo) upsert(tenant *models.Tenant) error {
	existing := m.records[tenant.TenantID]
	if existing != nil && existing.OwnerID != tenant.OwnerID {
		return models.ErrSlugTaken
	}
	if existing != nil {
		tenant.CreatedAt = existing.CreatedAt
		tenant.Version = existing.Version + 1
	} else {
		tenant.Version = 1
	}
	m.records[tenant.TenantID] = tenant.Clone()
	return nil
}

func (m *MemoryTenantRepo) Upsert(ctx context.Context, tenant *models.Tenant) error {
	if err := m.enter(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsert(tenant)
}

func (m *MemoryTenantRepo) Update(ctx context.Context, tenant *models.Tenant, expectedVersion int64) error {
	if err := m.enter(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.records[tenant.TenantID]
	if existing == nil || existing.OwnerID != tenant.OwnerID || existing.Version != expectedVersion {
		return fmt.Errorf("update tenant %s: %w", tenant.TenantID, models.ErrConflict)
	}
	tenant.Version = expectedVersion + 1
	m.records[tenant.TenantID] = tenant.Clone()
	return nil
}

func (m *MemoryTenantRepo) Rename(ctx context.Context, fromID string, expectedVersion int64, tenant *models.Tenant) error {
	if err := m.enter(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if target := m.records[tenant.TenantID]; target != nil && target.OwnerID != tenant.OwnerID {
		return models.ErrSlugTaken
	}
	source := m.records[fromID]
	if source == nil || source.OwnerID != tenant.OwnerID || source.Version != expectedVersion {
		return fmt.Errorf("delete renamed tenant %s: %w", fromID, models.ErrConflict)
	}
	createdAt := tenant.CreatedAt
	if err := m.upsert(tenant); err != nil {
		return err
	}
	// the source's created_at wins over an existing target row
	tenant.CreatedAt = createdAt
	m.records[tenant.TenantID].CreatedAt = createdAt
	delete(m.records, fromID)
	return nil
}

func (m *MemoryTenantRepo) Delete(ctx context.Context, tenantID, ownerID string) (bool, error) {
	if err := m.enter(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.records[tenantID]
	if existing == nil || existing.OwnerID != ownerID {
		return false, nil
	}
	delete(m.records, tenantID)
	return true, nil
}

func (m *MemoryTenantRepo) DeleteVersion(ctx context.Context, tenantID, ownerID string, version int64) (bool, error) {
	if err := m.enter(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.records[tenantID]
	if existing == nil || existing.OwnerID != ownerID || existing.Version != version {
		return false, nil
	}
	delete(m.records, tenantID)
	return true, nil
}

// MemoryRevocationStore keeps revocation marks in a map. TTLs are ignored.
type MemoryRevocationStore struct {
	mu    sync.Mutex
	marks map[string]time.Time
	Err   error
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{marks: make(map[string]time.Time)}
}

func (m *MemoryRevocationStore) SetRevokedBefore(_ context.Context, subjectID string, at time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.marks[subjectID] = at
	return nil
}

func (m *MemoryRevocationStore) GetRevokedBefore(_ context.Context, subjectID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return time.Time{}, false, m.Err
	}
	at, ok := m.marks[subjectID]
	return at, ok, nil
}
