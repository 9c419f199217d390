package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"async-ledger/config"
	redisStore "async-ledger/internal/adapter/storage/redis"
	"async-ledger/pkg/apperror"
	"async-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	GroupTransactions = "transactions"
	GroupReads        = "reads"
)

// RateLimitStore counts requests per key and window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Enabled reports whether the rule limits anything.
func (r RateLimitRule) Enabled() bool {
	return r.Limit > 0 && r.Window > 0
}

// RateLimitRules maps the configured per-minute limits onto endpoint groups.
func RateLimitRules(cfg config.RateLimitConfig) map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupTransactions: {Limit: cfg.TransactionsPerMinute, Window: time.Minute},
		GroupReads:        {Limit: cfg.ReadsPerMinute, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// A disabled rule or a nil store passes every request through.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || !rule.Enabled() {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated callers by owner, everyone else by client IP.
func extractIdentifier(c *gin.Context) string {
	if owner, ok := OwnerID(c); ok {
		return "owner:" + strconv.FormatInt(owner, 10)
	}
	return "ip:" + c.ClientIP()
}
