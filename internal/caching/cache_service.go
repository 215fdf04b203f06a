package caching

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "consultapp:"

// Store is a byte-oriented cache level. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type CacheService interface {
	Store

	// Session revocation cut-offs
	SetRevokedBefore(ctx context.Context, subjectID string, at time.Time, ttl time.Duration) error
	GetRevokedBefore(ctx context.Context, subjectID string) (time.Time, bool, error)

	Ping(ctx context.Context) error
	Close() error
}

type redisCacheService struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisClient builds a client from either a redis:// URL or a bare host:port
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if password != "" {
			opts.Password = password
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

func NewRedisCacheService(client redis.UniversalClient, logger *zap.Logger) CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.Error(err))
	} else {
		logger.Debug("redis connection established")
	}
	return &redisCacheService{client: client, logger: logger}
}

func (r *redisCacheService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // cache miss
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *redisCacheService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (r *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func revocationKey(subjectID string) string {
	return keyPrefix + "revoked:" + subjectID
}

func (r *redisCacheService) SetRevokedBefore(ctx context.Context, subjectID string, at time.Time, ttl time.Duration) error {
	return r.client.Set(ctx, revocationKey(subjectID), strconv.FormatInt(at.UnixMilli(), 10), ttl).Err()
}

func (r *redisCacheService) GetRevokedBefore(ctx context.Context, subjectID string) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, revocationKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt revocation mark for %s: %w", subjectID, err)
	}
	return time.UnixMilli(millis).UTC(), true, nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCacheService) Close() error {
	return r.client.Close()
}
