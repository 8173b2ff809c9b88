package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/mixmint/mixmint-downloads/internal/api/shared/errors"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
	"github.com/mixmint/mixmint-downloads/internal/ratelimit"
	"github.com/mixmint/mixmint-downloads/internal/settings"
)

const DOWNLOAD_RATE_LIMIT_KEY_PREFIX = "download:ip:"

// DownloadRateLimit limits requests per client IP using the platform's
// download_rate_limit_per_minute setting. Limiter failures let the request through.
func DownloadRateLimit(limiter ratelimit.Limiter, provider settings.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		clientIP := c.ClientIP()

		perMinute := settings.DEFAULT_DOWNLOAD_RATE_LIMIT_PER_MINUTE
		s, err := provider.Get(ctx)
		if err != nil {
			logger.WarnCtx(ctx, "Failed to load settings for rate limiting, using default",
				zap.Error(err),
				zap.Int("per_minute", perMinute),
			)
		} else if s.DownloadRateLimitPerMinute > 0 {
			perMinute = s.DownloadRateLimitPerMinute
		}

		result, err := limiter.Allow(ctx, DOWNLOAD_RATE_LIMIT_KEY_PREFIX+clientIP, perMinute)
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("client_ip", clientIP))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			metrics.RecordRateLimited(result.Backend)
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.WarnCtx(ctx, "Download rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("backend", result.Backend),
				zap.Int("retry_after", retryAfter),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierrors.NewRateLimitedError("Too many download requests, please try again later"))
			return
		}

		c.Next()
	}
}
