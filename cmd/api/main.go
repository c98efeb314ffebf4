package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/gateway"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/orders"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if cfg.Database.MigrateOnStart {
		if err := pgStorage.Migrate(cfg.Database, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepository(pool)
	ledgerRepo := pgStorage.NewLedgerRepository(pool)
	txRepo := pgStorage.NewTransactionRepository(pool)
	ruleRepo := pgStorage.NewCommissionRuleRepository(pool)
	reviewRepo := pgStorage.NewReviewRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idemCache := redisStorage.NewIdempotencyCache(rdb)
	replayGuard := redisStorage.NewReplayGuard(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.Crypto.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	tokenSvc := service.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	commissionEngine := service.NewCommissionEngine()
	ruleSource := service.NewCachedRuleSource(ruleRepo, cfg.Commission.RuleCacheTTL)

	// Initialize outbound adapters
	gateways, err := gateway.NewRegistry(cfg.Gateway, cfg.Crypto.MasterKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize payment gateways")
	}
	orderClient := orders.NewClient(cfg.Orders, &http.Client{Timeout: cfg.Orders.Timeout}, log)
	notifier := service.NewHTTPNotifier(cfg.Notifier, &http.Client{Timeout: cfg.Notifier.Timeout}, log)

	// Initialize business services
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, transactor, cfg.Ledger, log)
	txSvc := service.NewTransactionService(
		txRepo,
		walletRepo,
		walletSvc,
		ruleSource,
		commissionEngine,
		orderClient,
		gateways,
		encSvc,
		idemCache,
		notifier,
		cfg.Ledger,
		cfg.Gateway,
		cfg.Reconciliation,
		log,
	)
	reconSvc := service.NewReconciliationService(
		txRepo,
		txSvc,
		gateways,
		reviewRepo,
		replayGuard,
		notifier,
		cfg.Reconciliation,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthChecker(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		TxSvc:          txSvc,
		ReconSvc:       reconSvc,
		LedgerRepo:     ledgerRepo,
		ReviewRepo:     reviewRepo,
		Gateways:       gateways,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
