package collector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const (
	defaultUserCacheSize = 1024
	userCacheKeyPrefix   = "postwall:user:"
	DefaultUserCacheTTL  = 24 * time.Hour
)

// ResolvedUser is the result of a handle lookup on the provider.
type ResolvedUser struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// UserCache remembers handle to user resolutions across pipeline runs so a
// run only pays for the timeline call. Cache failures are never fatal, callers
// fall back to a fresh lookup.
type UserCache interface {
	Get(ctx context.Context, handle string) (*ResolvedUser, bool)
	Set(ctx context.Context, handle string, user ResolvedUser)
	Evict(ctx context.Context, handle string)
}

type LruUserCache struct {
	cache *lru.Cache
}

func NewLruUserCache(size int) (*LruUserCache, error) {
	if size <= 0 {
		size = defaultUserCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "fail to create lru user cache")
	}
	return &LruUserCache{cache: c}, nil
}

func (c *LruUserCache) Get(_ context.Context, handle string) (*ResolvedUser, bool) {
	v, ok := c.cache.Get(handle)
	if !ok {
		return nil, false
	}
	user := v.(ResolvedUser)
	return &user, true
}

func (c *LruUserCache) Set(_ context.Context, handle string, user ResolvedUser) {
	c.cache.Add(handle, user)
}

func (c *LruUserCache) Evict(_ context.Context, handle string) {
	c.cache.Remove(handle)
}

// RedisUserCache shares resolutions between processes, e.g. the API server
// and one-shot fetcher runs.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisUserCache(client *redis.Client, ttl time.Duration) *RedisUserCache {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &RedisUserCache{client: client, ttl: ttl}
}

func (c *RedisUserCache) Get(ctx context.Context, handle string) (*ResolvedUser, bool) {
	raw, err := c.client.Get(ctx, userCacheKeyPrefix+handle).Bytes()
	if err != nil {
		return nil, false
	}
	var user ResolvedUser
	if err := json.Unmarshal(raw, &user); err != nil || user.Id == "" {
		return nil, false
	}
	return &user, true
}

func (c *RedisUserCache) Set(ctx context.Context, handle string, user ResolvedUser) {
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	c.client.Set(ctx, userCacheKeyPrefix+handle, raw, c.ttl)
}

func (c *RedisUserCache) Evict(ctx context.Context, handle string) {
	c.client.Del(ctx, userCacheKeyPrefix+handle)
}
