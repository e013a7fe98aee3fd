package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterStaleAfter    = 10 * time.Minute
)

// requestCost is the token cost of one request. Assessment and pricing
// calls run the full engine pipeline per hit, so they drain a caller's
// budget faster than profile reads do.
func requestCost(routePath string) int {
	switch routePath {
	case "/api/v1/risk/assess", "/api/v1/premium/quote", "/api/v1/premium/estimate":
		return 4
	case "/api/v1/devices/:device_id/score":
		return 2
	}
	return 1
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns a Gin middleware enforcing a per-client token
// bucket keyed by IP. rps is the steady refill rate and burst the
// bucket size; weighted endpoints consume more than one token per
// request. Rejections answer 429 with a Retry-After hint and show up
// in the secp_rate_limited_requests_total counter. Buckets idle past
// limiterStaleAfter are swept periodically.
func RateLimiter(rps, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*clientBucket)

	go func() {
		for {
			time.Sleep(limiterSweepInterval)
			mu.Lock()
			for ip, b := range buckets {
				if time.Since(b.lastSeen) > limiterStaleAfter {
					delete(buckets, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok {
			b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			buckets[ip] = b
		}
		b.lastSeen = time.Now()
		mu.Unlock()

		routePath := c.FullPath()
		if routePath == "" {
			routePath = c.Request.URL.Path
		}
		cost := requestCost(routePath)

		if !b.limiter.AllowN(time.Now(), cost) {
			RecordRateLimited(routePath)
			retryAfter := (cost + rps - 1) / rps
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
