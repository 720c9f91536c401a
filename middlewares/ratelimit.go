package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the configuration for the rate limiter
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterData holds one limiter per client IP.
type rateLimiterData struct {
	config  RateLimiterConfig
	clients map[string]*clientLimiter
	mu      sync.Mutex
	now     func() time.Time
}

const limiterIdleTTL = 10 * time.Minute

func (d *rateLimiterData) limiterFor(ip string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, cl := range d.clients {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(d.clients, key)
		}
	}

	cl, ok := d.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(d.config.RequestsPerSecond), d.config.Burst)}
		d.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// NewRateLimiterMiddleware creates a new per-client rate limiter middleware
func NewRateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	data := &rateLimiterData{
		config:  config,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}

	return func(c *gin.Context) {
		if !data.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
