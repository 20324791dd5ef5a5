package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimiterConfig limits request rates per client.
//
// Rate uses the limiter format, e.g. "100-M" (100/minute), "10-S".
// PerRouteRates overrides the default per request path. Identifier picks the
// client key: "ip" or "user" (falls back to ip for anonymous requests).
// SkipPaths are prefix-matched.
type RateLimiterConfig struct {
	Rate          string            `json:"rate"`
	PerRouteRates map[string]string `json:"per_route_rates"`
	Identifier    string            `json:"identifier"`
	SkipPaths     []string          `json:"skip_paths"`
	AddHeaders    bool              `json:"add_headers"`
	DenyStatus    int               `json:"deny_status"`
	DenyMessage   string            `json:"deny_message"`
}

type RateLimiter struct {
	cfg            RateLimiterConfig
	store          limiter.Store
	mu             sync.RWMutex
	limitersByRate map[string]*limiter.Limiter
}

func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	if cfg.Rate == "" {
		cfg.Rate = "300-M"
	}
	if cfg.DenyStatus == 0 {
		cfg.DenyStatus = http.StatusTooManyRequests
	}
	if cfg.DenyMessage == "" {
		cfg.DenyMessage = "rate limit exceeded"
	}
	return &RateLimiter{
		cfg:            cfg,
		store:          store,
		limitersByRate: make(map[string]*limiter.Limiter),
	}
}

func (rl *RateLimiter) limiterFor(rate string) (*limiter.Limiter, error) {
	rl.mu.RLock()
	lim, ok := rl.limitersByRate[rate]
	rl.mu.RUnlock()
	if ok {
		return lim, nil
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	lim = limiter.New(rl.store, parsed)

	rl.mu.Lock()
	rl.limitersByRate[rate] = lim
	rl.mu.Unlock()
	return lim, nil
}

func (rl *RateLimiter) key(c *gin.Context) string {
	if rl.cfg.Identifier == "user" {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
	}
	return "ip:" + c.ClientIP()
}

// Middleware returns the gin handler enforcing the configured limits.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range rl.cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		rate := rl.cfg.Rate
		if override, ok := rl.cfg.PerRouteRates[path]; ok {
			rate = override
		}
		lim, err := rl.limiterFor(rate)
		if err != nil {
			c.Next()
			return
		}

		limCtx, err := lim.Get(c.Request.Context(), rl.key(c))
		if err != nil {
			c.Next()
			return
		}
		if rl.cfg.AddHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(limCtx.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(limCtx.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(limCtx.Reset, 10))
		}
		if limCtx.Reached {
			c.AbortWithStatusJSON(rl.cfg.DenyStatus, gin.H{"error": rl.cfg.DenyMessage})
			return
		}
		c.Next()
	}
}
