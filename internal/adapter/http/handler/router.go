package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	TxSvc          ports.TransactionService
	ReconSvc       ports.ReconciliationService
	LedgerRepo     ports.LedgerRepository
	ReviewRepo     ports.ReviewRepository
	Gateways       ports.GatewayRegistry
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Provider callbacks (signature-authenticated, no service token) ---
	webhookHandler := NewWebhookHandler(deps.Gateways, deps.ReconSvc, deps.Logger)
	v1.POST("/webhooks/:provider", rl("webhooks"), webhookHandler.Receive)

	// --- Service-authenticated routes ---
	serviceAuth := middleware.ServiceAuth(deps.TokenSvc, deps.Logger)

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.LedgerRepo)
	wallets := v1.Group("/wallets", serviceAuth)
	{
		wallets.POST("", rl("wallets"), walletHandler.CreateWallet)
		wallets.GET("/:id", rl("wallets"), walletHandler.GetWallet)
		wallets.GET("/:id/balance", rl("wallets"), walletHandler.GetBalance)
		wallets.GET("/:id/ledger", rl("wallets"), walletHandler.ListLedger)
	}

	txHandler := NewTransactionHandler(deps.TxSvc)
	transactions := v1.Group("/transactions", serviceAuth)
	{
		transactions.POST("/deposit", rl("transactions"), txHandler.Deposit)
		transactions.POST("/withdraw", rl("transactions"), txHandler.Withdraw)
		transactions.POST("/payout", rl("transactions"), txHandler.Payout)
		transactions.POST("/order-payment", rl("transactions"), txHandler.OrderPayment)
		transactions.POST("/refund", rl("refunds"), txHandler.Refund)
		transactions.GET("/:id", rl("transactions"), txHandler.Get)
		transactions.POST("/:id/cancel", rl("transactions"), txHandler.Cancel)
	}

	// --- Ops console ---
	reviewHandler := NewReviewHandler(deps.ReviewRepo)
	reviews := v1.Group("/reviews", serviceAuth)
	{
		reviews.GET("", rl("reviews"), reviewHandler.List)
	}

	return r
}
