package caching

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// LocalCache is the in-process L1 level backed by ristretto.
type LocalCache struct {
	c *ristretto.Cache[string, []byte]
}

// NewLocalCache creates a cache bounded by maxCostBytes of stored values.
func NewLocalCache(maxCostBytes int64) (*LocalCache, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 16 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &LocalCache{c: c}, nil
}

func (l *LocalCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := l.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

func (l *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (l *LocalCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.c.Del(k)
	}
	return nil
}

// Wait blocks until buffered writes are applied.
func (l *LocalCache) Wait() {
	l.c.Wait()
}

func (l *LocalCache) Close() {
	l.c.Close()
}
