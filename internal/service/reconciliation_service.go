package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const replayGuardTTL = 48 * time.Hour

// reconciliationService confirms, fails, or parks externally funded
// transactions against the provider's authoritative record. Many workers
// may run concurrently; conditional status transitions make every decision
// race-safe.
type reconciliationService struct {
	txRepo      ports.TransactionRepository
	txSvc       ports.TransactionService
	gateways    ports.GatewayRegistry
	reviewRepo  ports.ReviewRepository
	replayGuard ports.ReplayGuard
	notifier    ports.Notifier
	cfg         config.ReconciliationConfig
	log         zerolog.Logger
	now         func() time.Time
}

func NewReconciliationService(
	txRepo ports.TransactionRepository,
	txSvc ports.TransactionService,
	gateways ports.GatewayRegistry,
	reviewRepo ports.ReviewRepository,
	replayGuard ports.ReplayGuard,
	notifier ports.Notifier,
	cfg config.ReconciliationConfig,
	log zerolog.Logger,
) ports.ReconciliationService {
	return &reconciliationService{
		txRepo:      txRepo,
		txSvc:       txSvc,
		gateways:    gateways,
		reviewRepo:  reviewRepo,
		replayGuard: replayGuard,
		notifier:    notifier,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Run polls on a fixed interval until ctx is done.
func (s *reconciliationService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.cfg.Interval).Msg("reconciliation worker started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("reconciliation sweep failed")
			}
		}
	}
}

// RunOnce performs one polling sweep over aged AWAITING_RECONCILIATION
// transactions.
func (s *reconciliationService) RunOnce(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.cfg.GracePeriod)
	txns, err := s.txRepo.ListAwaitingReconciliation(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for i := range txns {
		txn := &txns[i]
		if err := s.reconcileOne(ctx, txn); err != nil {
			// One sick transaction must not stall the sweep.
			s.log.Error().Err(err).
				Str("transaction_id", txn.ID.String()).
				Msg("reconciliation of transaction failed")
		}
	}
	return nil
}

func (s *reconciliationService) reconcileOne(ctx context.Context, txn *domain.Transaction) error {
	if txn.Provider == nil || txn.ExternalRef == nil {
		return s.park(ctx, txn, nil, "transaction has no provider reference")
	}

	gw, ok := s.gateways.Get(*txn.Provider)
	if !ok {
		return s.park(ctx, txn, nil, fmt.Sprintf("no gateway adapter for provider %q", *txn.Provider))
	}

	result, err := gw.PollStatus(ctx, *txn.ExternalRef)
	if err != nil {
		if txn.Expired(s.now().UTC()) {
			_, ferr := s.txSvc.FailExternal(ctx, txn.ID, "reconciliation window exhausted, provider unreachable")
			return ferr
		}
		// Transient; the next sweep picks it up again.
		return err
	}

	return s.decide(ctx, txn, result)
}

// HandleCallback processes a verified provider webhook.
func (s *reconciliationService) HandleCallback(ctx context.Context, event ports.WebhookEvent) error {
	eventKey := fmt.Sprintf("%s:%s:%s", event.Provider, event.ExternalRef, event.Status)
	first, err := s.replayGuard.FirstSeen(ctx, eventKey, replayGuardTTL)
	if err != nil {
		return err
	}
	if !first {
		s.log.Debug().Str("event", eventKey).Msg("webhook replay ignored")
		return nil
	}

	txn, err := s.txRepo.GetByExternalRef(ctx, event.ExternalRef)
	if err != nil {
		return err
	}
	if txn.Provider == nil || *txn.Provider != event.Provider {
		return apperror.Validation("webhook provider does not match transaction")
	}
	if txn.IsTerminal() {
		return nil
	}

	confirmedAt := event.ConfirmedAt
	result := &ports.PollResult{
		ExternalRef: event.ExternalRef,
		Status:      ports.ProviderStatus(event.Status),
		Amount:      event.Amount,
		ConfirmedAt: &confirmedAt,
	}
	return s.decide(ctx, txn, result)
}

// decide applies the matching rule: a provider record confirms a
// transaction only when status, amount and confirmation timestamp all
// agree. Anything ambiguous is parked for a human, never auto-resolved.
func (s *reconciliationService) decide(ctx context.Context, txn *domain.Transaction, result *ports.PollResult) error {
	switch result.Status {
	case ports.ProviderStatusConfirmed:
		if result.Amount != txn.Amount {
			return s.park(ctx, txn, result,
				fmt.Sprintf("amount mismatch: expected %d, provider reported %d", txn.Amount, result.Amount))
		}
		if result.ConfirmedAt != nil && !result.ConfirmedAt.IsZero() {
			if drift := s.now().UTC().Sub(result.ConfirmedAt.UTC()); drift > s.cfg.TimeWindow || drift < -s.cfg.TimeWindow {
				return s.park(ctx, txn, result,
					fmt.Sprintf("confirmation timestamp outside tolerance: provider reported %s",
						result.ConfirmedAt.UTC().Format(time.RFC3339)))
			}
		}
		_, err := s.txSvc.ConfirmExternal(ctx, txn.ID)
		return err

	case ports.ProviderStatusFailed:
		_, err := s.txSvc.FailExternal(ctx, txn.ID, "provider reported failure")
		return err

	case ports.ProviderStatusPending:
		if txn.Expired(s.now().UTC()) {
			_, err := s.txSvc.FailExternal(ctx, txn.ID, "reconciliation window exhausted")
			return err
		}
		return nil

	default:
		return s.park(ctx, txn, result, fmt.Sprintf("provider reported unrecognized status %q", result.Status))
	}
}

// park routes a transaction to the manual-review queue and alerts. The
// transaction stays AWAITING_RECONCILIATION but leaves the polling set.
func (s *reconciliationService) park(ctx context.Context, txn *domain.Transaction, result *ports.PollResult, reason string) error {
	exists, err := s.reviewRepo.ExistsForTransaction(ctx, txn.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	review := &domain.ReconciliationReview{
		ID:             uuid.New(),
		TransactionID:  txn.ID,
		Reason:         reason,
		ExpectedAmount: txn.Amount,
	}
	if txn.ExternalRef != nil {
		review.ExternalRef = *txn.ExternalRef
	}
	if result != nil {
		review.ReportedAmount = result.Amount
		review.ReportedStatus = string(result.Status)
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return err
	}

	s.log.Warn().
		Str("transaction_id", txn.ID.String()).
		Str("reason", reason).
		Msg("transaction parked for manual review")
	s.notifier.Alert(ctx, "reconciliation mismatch: "+reason, txn.ID)
	return nil
}
