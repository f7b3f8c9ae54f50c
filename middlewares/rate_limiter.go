package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/utils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	visitors map[string]*visitor
	mu       sync.Mutex
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		rate:     rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		visitors: make(map[string]*visitor),
	}
}

// Allow consumes one token for ip.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[ip]
	if !ok {
		rl.evict(now)
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// evict drops visitors idle for longer than idleTTL; caller holds mu.
func (rl *IPRateLimiter) evict(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			utils.InfoLogger.Warnf("Rate limit exceeded for %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.JSONResponse{
				Status:  false,
				Message: "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter guards login and register: 5 attempts per minute per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewIPRateLimiter(float64(rate.Every(time.Minute/5)), 5).Middleware()
}
