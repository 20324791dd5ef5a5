package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// localCache is a bounded in-process cache backed by an expirable LRU.
type localCache struct {
	lru *lru.LRU[string, any]
}

func NewLocalCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	ttl := config.DefaultExpiration
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &localCache{lru: lru.NewLRU[string, any](size, nil, ttl)}
}

func (lc *localCache) Get(_ context.Context, key string) (any, bool) {
	return lc.lru.Get(key)
}

// Set ignores the per-entry expiration; the LRU applies its default TTL.
func (lc *localCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	lc.lru.Add(key, value)
	return nil
}

func (lc *localCache) Delete(_ context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *localCache) Exists(_ context.Context, key string) bool {
	return lc.lru.Contains(key)
}

func (lc *localCache) Close() error {
	lc.lru.Purge()
	return nil
}
