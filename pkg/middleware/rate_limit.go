package middleware

import (
	"strconv"
	"sync"

	"github.com/docchat/backend/pkg/apperr"
	"github.com/docchat/backend/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const msgRateLimited = "Rate limit exceeded"

// rateKey prefers the authenticated user id and falls back to the client IP.
func rateKey(c *gin.Context) string {
	if u := CurrentUser(c); u != nil {
		return "user:" + strconv.FormatInt(u.ID, 10)
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// Each call owns its limiter store. rps = allowed events per second, burst =
// maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var store sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		v, _ := store.LoadOrStore(rateKey(c), rate.NewLimiter(rate.Limit(rps), burst))
		if !v.(*rate.Limiter).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			RespondError(c, apperr.New(apperr.CodeRateLimited, msgRateLimited))
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
