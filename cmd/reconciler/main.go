package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/gateway"
	"wallet-ledger/internal/adapter/orders"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"
)

// The reconciler runs as a separate process so provider polling cannot be
// starved by API traffic, and so it can be scaled (or paused) independently.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Dur("interval", cfg.Reconciliation.Interval).
		Int("batch_size", cfg.Reconciliation.BatchSize).
		Msg("Starting reconciliation worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	walletRepo := pgStorage.NewWalletRepository(pool)
	ledgerRepo := pgStorage.NewLedgerRepository(pool)
	txRepo := pgStorage.NewTransactionRepository(pool)
	ruleRepo := pgStorage.NewCommissionRuleRepository(pool)
	reviewRepo := pgStorage.NewReviewRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	idemCache := redisStorage.NewIdempotencyCache(rdb)
	replayGuard := redisStorage.NewReplayGuard(rdb)

	encSvc, err := service.NewAESEncryptionService(cfg.Crypto.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	commissionEngine := service.NewCommissionEngine()
	ruleSource := service.NewCachedRuleSource(ruleRepo, cfg.Commission.RuleCacheTTL)

	gateways, err := gateway.NewRegistry(cfg.Gateway, cfg.Crypto.MasterKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize payment gateways")
	}
	orderClient := orders.NewClient(cfg.Orders, &http.Client{Timeout: cfg.Orders.Timeout}, log)
	notifier := service.NewHTTPNotifier(cfg.Notifier, &http.Client{Timeout: cfg.Notifier.Timeout}, log)

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

	// Blocks until the context is cancelled by SIGINT/SIGTERM.
	reconSvc.Run(ctx)

	log.Info().Msg("Reconciliation worker exited")
}
