package handler

import (
	"async-ledger/config"
	"async-ledger/internal/adapter/http/middleware"
	"async-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransactionSvc ports.TransactionService
	AccountSvc     ports.AccountService
	TokenSvc       ports.TokenService
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	RateLimit      config.RateLimitConfig
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Correlation id first so recovery and request logs carry it.
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.RateLimitRules(deps.RateLimit)
	rl := func(group string) gin.HandlerFunc {
		return middleware.RateLimiter(deps.RateLimitStore, group, rules[group], deps.Logger)
	}

	txHandler := NewTransactionHandler(deps.TransactionSvc)
	accountHandler := NewAccountHandler(deps.AccountSvc)

	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	{
		v1.POST("/transactions", rl(middleware.GroupTransactions), txHandler.CreateTransaction)

		accounts := v1.Group("/accounts", rl(middleware.GroupReads))
		{
			accounts.GET("", accountHandler.ListAccounts)
			accounts.GET("/:id", accountHandler.GetAccount)
			accounts.GET("/:id/transfer-targets", accountHandler.ListTransferTargets)
			accounts.GET("/:id/transactions", txHandler.ListTransactions)
			accounts.GET("/:id/transactions/reversible", txHandler.ListReversible)
		}
	}

	return r
}
