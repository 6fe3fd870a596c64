package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"secknow-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
)

// RateLimitRule is a token bucket: Rate tokens per second, at most Burst saved up.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimitConfig maps request groups to rules. Requests whose group has no rule pass.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps one token bucket per principal and group.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      now,
	}
}

// RateLimit throttles each principal per group. Guests and users are keyed by their user id,
// anonymous requests by client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		key := principal + "|" + group
		allowed, retryAfter := cfg.Limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}
		retry := retryAfter.Round(time.Millisecond)
		if retry <= 0 {
			retry = time.Second
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"group":        group,
			"retryAfterMs": retry.Milliseconds(),
		})
	}
}

// Allow takes one token from key's bucket. When none is available it reports how long until
// one will be.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	delay := res.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}
