package middleware

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/tenant-auth/pkg/logger"
	pkgredis "github.com/prohmpiriya/tenant-auth/pkg/redis"
	"github.com/prohmpiriya/tenant-auth/pkg/response"
	"github.com/prohmpiriya/tenant-auth/pkg/telemetry"
)

//go:embed scripts/token_bucket.lua
var tokenBucketScript string

const scriptTokenBucket = "token_bucket"

// RateLimitConfig configures RateLimiter
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	KeyPrefix         string
	// Now is overridable for tests
	Now func() time.Time
}

// DefaultRateLimitConfig suits credential endpoints: short bursts, slow refill
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         10,
		KeyPrefix:         "ratelimit:",
		Now:               time.Now,
	}
}

// RedisRateLimiter is a token bucket per key shared by all instances through Redis
type RedisRateLimiter struct {
	client *pkgredis.Client
	config RateLimitConfig
}

// NewRedisRateLimiter creates a limiter, filling unset config values with defaults
func NewRedisRateLimiter(client *pkgredis.Client, config RateLimitConfig) *RedisRateLimiter {
	def := DefaultRateLimitConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.BurstSize <= 0 {
		config.BurstSize = def.BurstSize
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	return &RedisRateLimiter{client: client, config: config}
}

// keyTTL is the time a drained bucket needs to refill completely
func (rl *RedisRateLimiter) keyTTL() int64 {
	secs := int64(math.Ceil(float64(rl.config.BurstSize) / rl.config.RequestsPerSecond))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Allow takes one token from the bucket for key and returns the whole tokens left
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	result, err := rl.client.EvalWithFallback(ctx, scriptTokenBucket, tokenBucketScript,
		[]string{rl.config.KeyPrefix + key},
		rl.config.RequestsPerSecond,
		rl.config.BurstSize,
		rl.config.Now().UnixMilli(),
		rl.keyTTL(),
	).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(result) < 2 {
		return false, 0, fmt.Errorf("unexpected result length: %d", len(result))
	}
	return result[0] == 1, int(result[1]), nil
}

// RateLimiter limits requests per client IP and route. Redis failures let the
// request through.
func RateLimiter(limiter *RedisRateLimiter, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("rate-limiter")

	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "middleware.rate_limiter")
		defer span.End()

		key := c.ClientIP() + ":" + c.FullPath()
		span.SetAttributes(attribute.String("rate_limit.key", key))

		allowed, remaining, err := limiter.Allow(ctx, key)
		if err != nil {
			log.Warn("Rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}
		span.SetAttributes(attribute.Bool("rate_limit.allowed", allowed))

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.config.BurstSize))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := int(math.Ceil(1 / limiter.config.RequestsPerSecond))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.AbortError(c, http.StatusTooManyRequests, response.CodeTooManyRequests,
				"Rate limit exceeded. Please retry after "+strconv.Itoa(retryAfter)+" second(s).")
			return
		}
		c.Next()
	}
}
