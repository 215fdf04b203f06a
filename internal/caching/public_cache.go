package caching

import (
	"context"
	"encoding/json"
	"time"

	"consultapp/internal/models"
)

// PublicTenantCache holds the anonymous landing page view keyed by slug.
// Entries may be stale for at most the configured TTL.
type PublicTenantCache interface {
	Get(ctx context.Context, tenantID string) (*models.PublicTenant, bool, error)
	Set(ctx context.Context, view *models.PublicTenant) error
	Invalidate(ctx context.Context, tenantIDs ...string) error
}

type publicTenantCache struct {
	store Store
	ttl   time.Duration
}

func NewPublicTenantCache(store Store, ttl time.Duration) PublicTenantCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &publicTenantCache{store: store, ttl: ttl}
}

func publicKey(tenantID string) string {
	return "public:" + tenantID
}

func (p *publicTenantCache) Get(ctx context.Context, tenantID string) (*models.PublicTenant, bool, error) {
	data, found, err := p.store.Get(ctx, publicKey(tenantID))
	if err != nil || !found {
		return nil, false, err
	}
	var view models.PublicTenant
	if err := json.Unmarshal(data, &view); err != nil {
		// unreadable entry, treat as a miss
		_ = p.store.Delete(ctx, publicKey(tenantID))
		return nil, false, nil
	}
	return &view, true, nil
}

func (p *publicTenantCache) Set(ctx context.Context, view *models.PublicTenant) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, publicKey(view.TenantID), data, p.ttl)
}

func (p *publicTenantCache) Invalidate(ctx context.Context, tenantIDs ...string) error {
	keys := make([]string, 0, len(tenantIDs))
	for _, id := range tenantIDs {
		if id != "" {
			keys = append(keys, publicKey(id))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return p.store.Delete(ctx, keys...)
}
