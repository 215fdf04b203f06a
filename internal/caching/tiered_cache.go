package caching

import (
	"context"
	"time"
)

// TieredCache checks L1 before L2 and backfills L1 on an L2 hit. Writes and
// deletes go to both levels. A nil l2 makes it a plain L1 cache.
type TieredCache struct {
	l1       Store
	l2       Store
	l1Expire time.Duration
}

func NewTieredCache(l1, l2 Store, l1Expire time.Duration) *TieredCache {
	return &TieredCache{l1: l1, l2: l2, l1Expire: l1Expire}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found || c.l2 == nil {
		return val, found, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		_ = c.l1.Set(ctx, key, val, c.l1Expire)
		return val, true, nil
	}
	return nil, false, nil
}

func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if c.l2 == nil {
		return nil
	}
	return c.l2.Set(ctx, key, value, ttl)
}

func (c *TieredCache) Delete(ctx context.Context, keys ...string) error {
	if err := c.l1.Delete(ctx, keys...); err != nil {
		return err
	}
	if c.l2 == nil {
		return nil
	}
	return c.l2.Delete(ctx, keys...)
}
