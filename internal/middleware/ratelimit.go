package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/apperr"
	"github.com/lalith-99/bikers/internal/observ"
	"github.com/lalith-99/bikers/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimit limits requests per client IP under the named rule. If redis
// errors, the request is let through and the failure logged.
func RateLimit(limiter *ratelimit.Limiter, name string, rule ratelimit.Rule, metrics *observ.Metrics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), name, c.ClientIP(), rule)
		if err != nil {
			Logger(c, logger).Warn("rate limiter unavailable", zap.String("limiter", name), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			if metrics != nil {
				metrics.RateLimitRejections.WithLabelValues(name).Inc()
			}
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			abort(c, apperr.RateLimited("too many requests, please try again later"))
			return
		}
		c.Next()
	}
}
