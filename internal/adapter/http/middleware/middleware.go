package middleware

import (
	"net/http"
	"strings"
	"time"

	"async-ledger/internal/core/ports"
	"async-ledger/pkg/apperror"
	"async-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"

	// Context keys. CtxRequestID is shared with the response envelope.
	CtxOwnerID   = "owner_id"
	CtxRequestID = "request_id"

	maxCorrelationIDLength = 64
)

// CorrelationID picks up the caller's correlation id or generates one,
// stores it on the context and echoes it back on the response.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderCorrelationID))
		if id == "" {
			id = strings.TrimSpace(c.GetHeader(HeaderRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}
		if len(id) > maxCorrelationIDLength {
			id = id[:maxCorrelationIDLength]
		}

		c.Set(CtxRequestID, id)
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}

// GetCorrelationID returns the id set by CorrelationID, or "" outside it.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CtxRequestID)
}

// JWTAuth validates the bearer token and stores the owner id on the context.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(authHeader[7:])
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected bearer token")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxOwnerID, claims.OwnerID)
		c.Next()
	}
}

// OwnerID returns the authenticated owner, if JWTAuth ran.
func OwnerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxOwnerID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if owner, ok := OwnerID(c); ok {
			event = event.Int64("owner_id", owner)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("correlation_id", GetCorrelationID(c)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Str("correlation_id", GetCorrelationID(c)).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
