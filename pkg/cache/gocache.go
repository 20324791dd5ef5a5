package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// goCache wraps patrickmn/go-cache; unlike the LRU it honours per-entry TTLs
// and runs a background janitor.
type goCache struct {
	c *gocache.Cache
}

func NewGoCache(config LocalConfig) Cache {
	exp := config.DefaultExpiration
	if exp <= 0 {
		exp = 5 * time.Minute
	}
	cleanup := config.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &goCache{c: gocache.New(exp, cleanup)}
}

func (g *goCache) Get(_ context.Context, key string) (any, bool) {
	return g.c.Get(key)
}

func (g *goCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	g.c.Set(key, value, expiration)
	return nil
}

func (g *goCache) Delete(_ context.Context, key string) error {
	g.c.Delete(key)
	return nil
}

func (g *goCache) Exists(_ context.Context, key string) bool {
	_, ok := g.c.Get(key)
	return ok
}

func (g *goCache) Close() error {
	g.c.Flush()
	return nil
}
