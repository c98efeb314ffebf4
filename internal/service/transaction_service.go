package service

import (
	"context"
	"encoding/json"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Lifecycle event names published to the notifier sink.
const (
	EventTransactionInitiated = "TRANSACTION_INITIATED"
	EventTransactionCompleted = "TRANSACTION_COMPLETED"
	EventTransactionFailed    = "TRANSACTION_FAILED"
	EventTransactionReversed  = "TRANSACTION_REVERSED"
)

const idempotencyCacheTTL = 24 * time.Hour

// platformOwnerID is the owner id of the single platform revenue wallet.
const platformOwnerID = "platform"

// transactionService is the Transaction State Machine: the only writer of
// transaction status transitions outside reconciliation.
type transactionService struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	walletSvc  ports.WalletService
	ruleSource ports.RuleSource
	commission ports.CommissionEngine
	orders     ports.OrderClient
	gateways   ports.GatewayRegistry
	encSvc     ports.EncryptionService
	idemCache  ports.IdempotencyCache
	notifier   ports.Notifier
	ledgerCfg  config.LedgerConfig
	gatewayCfg config.GatewayConfig
	reconCfg   config.ReconciliationConfig
	log        zerolog.Logger

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

func NewTransactionService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	walletSvc ports.WalletService,
	ruleSource ports.RuleSource,
	commission ports.CommissionEngine,
	orders ports.OrderClient,
	gateways ports.GatewayRegistry,
	encSvc ports.EncryptionService,
	idemCache ports.IdempotencyCache,
	notifier ports.Notifier,
	ledgerCfg config.LedgerConfig,
	gatewayCfg config.GatewayConfig,
	reconCfg config.ReconciliationConfig,
	log zerolog.Logger,
) ports.TransactionService {
	return &transactionService{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		walletSvc:  walletSvc,
		ruleSource: ruleSource,
		commission: commission,
		orders:     orders,
		gateways:   gateways,
		encSvc:     encSvc,
		idemCache:  idemCache,
		notifier:   notifier,
		ledgerCfg:  ledgerCfg,
		gatewayCfg: gatewayCfg,
		reconCfg:   reconCfg,
		log:        log,
		sleep:      time.Sleep,
	}
}

// replayed returns the prior transaction for an idempotency key, checking
// the Redis fast path before the durable unique column.
func (s *transactionService) replayed(ctx context.Context, key string) (*domain.Transaction, bool) {
	if key == "" {
		return nil, false
	}
	if cached, err := s.idemCache.Get(ctx, key); err == nil && cached != nil {
		var txn domain.Transaction
		if err := json.Unmarshal(cached, &txn); err == nil {
			return &txn, true
		}
	}
	txn, err := s.txRepo.GetByIdempotencyKey(ctx, key)
	if err == nil {
		return txn, true
	}
	return nil, false
}

func (s *transactionService) cacheResult(ctx context.Context, txn *domain.Transaction) {
	body, err := json.Marshal(txn)
	if err != nil {
		return
	}
	if err := s.idemCache.Set(ctx, txn.IdempotencyKey, body, idempotencyCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txn.ID.String()).Msg("idempotency cache write failed")
	}
}

func roleForOwner(ownerType domain.OwnerType) domain.LegRole {
	switch ownerType {
	case domain.OwnerTypeCustomer:
		return domain.LegRoleCustomer
	case domain.OwnerTypeVendor:
		return domain.LegRoleVendor
	case domain.OwnerTypeRider:
		return domain.LegRoleRider
	case domain.OwnerTypePlatform:
		return domain.LegRolePlatform
	case domain.OwnerTypeExternal:
		return domain.LegRoleExternal
	}
	return domain.LegRoleOwner
}

// ensureWallet resolves a party's wallet, creating it on first contact.
func (s *transactionService) ensureWallet(ctx context.Context, ownerID string, ownerType domain.OwnerType) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerID, s.ledgerCfg.Currency)
	if err == nil {
		return wallet, nil
	}
	if !apperror.IsCode(err, apperror.CodeNotFound) {
		return nil, err
	}
	wallet, err = s.walletSvc.CreateWallet(ctx, ownerID, ownerType, s.ledgerCfg.Currency)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeWalletExists) {
			return s.walletRepo.GetByOwner(ctx, ownerID, s.ledgerCfg.Currency)
		}
		return nil, err
	}
	return wallet, nil
}

func (s *transactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.txRepo.GetByID(ctx, id)
}

// --- External inflow: deposits ---

func (s *transactionService) CreateDeposit(ctx context.Context, req ports.DepositRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("amount must be positive")
	}
	if req.PhoneNumber == "" {
		return nil, apperror.Validation("phone_number is required")
	}
	if prior, ok := s.replayed(ctx, req.IdempotencyKey); ok {
		return prior, nil
	}

	gw, ok := s.gateways.Get(req.Provider)
	if !ok {
		return nil, apperror.ErrUnknownProvider(req.Provider)
	}

	wallet, err := s.walletSvc.GetWallet(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletFrozen(wallet.ID.String())
	}

	extWallet, err := s.walletSvc.ExternalWallet(ctx, req.Provider, s.ledgerCfg.Currency)
	if err != nil {
		return nil, err
	}

	msisdnEnc, err := s.encSvc.Encrypt(req.PhoneNumber)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	deadline := time.Now().UTC().Add(s.reconCfg.MaxAge)
	provider := req.Provider
	txn := &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		Type:           domain.TransactionTypeDeposit,
		Status:         domain.StatusCreated,
		Amount:         req.Amount,
		Currency:       s.ledgerCfg.Currency,
		Legs: []domain.Leg{
			{WalletID: extWallet.ID, Amount: -req.Amount, Role: domain.LegRoleExternal},
			{WalletID: wallet.ID, Amount: req.Amount, Role: roleForOwner(wallet.OwnerType)},
		},
		Provider:  &provider,
		MSISDNEnc: &msisdnEnc,
		Deadline:  &deadline,
	}
	if err := s.txRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	return s.initiateExternal(ctx, txn, gw, req.PhoneNumber, false)
}

// --- External outflow: withdrawals and payouts ---

func (s *transactionService) CreateWithdrawal(ctx context.Context, req ports.WithdrawalRequest) (*domain.Transaction, error) {
	return s.createOutflow(ctx, req, domain.TransactionTypeWithdrawal)
}

// CreatePayout is the vendor/rider settlement path. Same mechanics as a
// withdrawal; kept as its own type for reporting and review triage.
func (s *transactionService) CreatePayout(ctx context.Context, req ports.WithdrawalRequest) (*domain.Transaction, error) {
	return s.createOutflow(ctx, req, domain.TransactionTypePayout)
}

func (s *transactionService) createOutflow(ctx context.Context, req ports.WithdrawalRequest, txType domain.TransactionType) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("amount must be positive")
	}
	if req.PhoneNumber == "" {
		return nil, apperror.Validation("phone_number is required")
	}
	if prior, ok := s.replayed(ctx, req.IdempotencyKey); ok {
		return prior, nil
	}

	gw, ok := s.gateways.Get(req.Provider)
	if !ok {
		return nil, apperror.ErrUnknownProvider(req.Provider)
	}

	wallet, err := s.walletSvc.GetWallet(ctx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletFrozen(wallet.ID.String())
	}

	extWallet, err := s.walletSvc.ExternalWallet(ctx, req.Provider, s.ledgerCfg.Currency)
	if err != nil {
		return nil, err
	}

	msisdnEnc, err := s.encSvc.Encrypt(req.PhoneNumber)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	deadline := time.Now().UTC().Add(s.reconCfg.MaxAge)
	provider := req.Provider
	txn := &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		Type:           txType,
		Status:         domain.StatusCreated,
		Amount:         req.Amount,
		Currency:       s.ledgerCfg.Currency,
		Legs: []domain.Leg{
			{WalletID: wallet.ID, Amount: -req.Amount, Role: roleForOwner(wallet.OwnerType)},
			{WalletID: extWallet.ID, Amount: req.Amount, Role: domain.LegRoleExternal},
		},
		Provider:  &provider,
		MSISDNEnc: &msisdnEnc,
		Deadline:  &deadline,
	}
	if err := s.txRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	// Hold the funds before asking the rail to pay out.
	if _, err := s.txRepo.TransitionStatus(ctx, txn.ID, domain.StatusCreated, domain.StatusApplying); err != nil {
		return nil, err
	}
	txn.Status = domain.StatusApplying
	if _, err := s.walletSvc.ApplyTransactionLegs(ctx, txn.ID, txn.Legs); err != nil {
		s.failTransaction(ctx, txn, domain.StatusApplying, err.Error())
		return nil, err
	}

	return s.initiateExternal(ctx, txn, gw, req.PhoneNumber, true)
}

// initiateExternal drives CREATED/APPLYING -> PENDING_EXTERNAL -> initiation
// -> AWAITING_RECONCILIATION. fundsHeld marks outflows whose legs were
// already applied and must be compensated if the rail rejects the request.
func (s *transactionService) initiateExternal(ctx context.Context, txn *domain.Transaction, gw ports.PaymentGateway, phoneNumber string, fundsHeld bool) (*domain.Transaction, error) {
	if _, err := s.txRepo.TransitionStatus(ctx, txn.ID, txn.Status, domain.StatusPendingExternal); err != nil {
		return nil, err
	}
	txn.Status = domain.StatusPendingExternal

	providerRef, err := s.initiateWithRetry(ctx, gw, txn, phoneNumber)
	if err != nil {
		reason := "provider initiation failed: " + err.Error()
		if fundsHeld {
			if rerr := s.reverseHeldFunds(ctx, txn, reason); rerr != nil {
				return nil, rerr
			}
		}
		s.failTransaction(ctx, txn, domain.StatusPendingExternal, reason)
		return nil, err
	}

	if err := s.txRepo.SetExternalRef(ctx, txn.ID, providerRef); err != nil {
		return nil, err
	}
	txn.ExternalRef = &providerRef

	if _, err := s.txRepo.TransitionStatus(ctx, txn.ID, domain.StatusPendingExternal, domain.StatusAwaitingReconciliation); err != nil {
		return nil, err
	}
	txn.Status = domain.StatusAwaitingReconciliation

	s.cacheResult(ctx, txn)
	s.notifier.TransactionEvent(ctx, txn, EventTransactionInitiated)
	return txn, nil
}

// initiateWithRetry retries transient provider failures with exponential
// backoff, bounded by the provider's configured attempt cap.
func (s *transactionService) initiateWithRetry(ctx context.Context, gw ports.PaymentGateway, txn *domain.Transaction, phoneNumber string) (string, error) {
	pc := s.gatewayCfg.Providers[gw.Name()]
	attempts := pc.AttemptCap
	if attempts < 1 {
		attempts = 3
	}
	backoff := pc.BackoffBase
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			s.sleep(backoff)
			backoff *= 2
			if err := s.txRepo.IncrementRetryCount(ctx, txn.ID); err != nil {
				s.log.Warn().Err(err).Str("transaction_id", txn.ID.String()).Msg("retry count update failed")
			}
		}

		ref, err := gw.InitiatePayment(ctx, txn.ID.String(), txn.Amount, phoneNumber)
		if err == nil {
			return ref, nil
		}
		lastErr = err
		if !apperror.IsRetryable(err) {
			break
		}
		s.log.Warn().Err(err).
			Str("transaction_id", txn.ID.String()).
			Str("provider", gw.Name()).
			Int("attempt", attempt).
			Msg("provider initiation failed")
	}
	return "", lastErr
}

// --- Internal movement: order payments ---

func (s *transactionService) CreateOrderPayment(ctx context.Context, req ports.OrderPaymentRequest) (*domain.Transaction, error) {
	if req.OrderID == "" {
		return nil, apperror.Validation("order_id is required")
	}
	if prior, ok := s.replayed(ctx, req.IdempotencyKey); ok {
		return prior, nil
	}

	order, err := s.orders.GetOrderTotal(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Subtotal <= 0 {
		return nil, apperror.Validation("order subtotal must be positive")
	}

	customer, err := s.walletSvc.GetWallet(ctx, req.CustomerWalletID)
	if err != nil {
		return nil, err
	}
	vendor, err := s.ensureWallet(ctx, order.VendorID, domain.OwnerTypeVendor)
	if err != nil {
		return nil, err
	}
	platform, err := s.ensureWallet(ctx, platformOwnerID, domain.OwnerTypePlatform)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	orderRule, err := s.ruleSource.Effective(ctx, domain.ResourceTypeOrder, now)
	if err != nil {
		return nil, err
	}
	orderSplit := s.commission.SplitOrder(order.Subtotal, orderRule)

	total := order.Subtotal + order.DeliveryFee
	vendorAmount := orderSplit.VendorAmount
	platformAmount := orderSplit.PlatformAmount

	legs := []domain.Leg{
		{WalletID: customer.ID, Amount: -total, Role: domain.LegRoleCustomer},
	}

	var riderLeg *domain.Leg
	if order.DeliveryFee > 0 {
		if order.RiderID != nil {
			rider, err := s.ensureWallet(ctx, *order.RiderID, domain.OwnerTypeRider)
			if err != nil {
				return nil, err
			}
			deliveryRule, err := s.ruleSource.Effective(ctx, domain.ResourceTypeDelivery, now)
			if err != nil {
				return nil, err
			}
			deliverySplit := s.commission.SplitDelivery(order.DeliveryFee, deliveryRule)
			platformAmount += deliverySplit.PlatformAmount
			if deliverySplit.RiderAmount > 0 {
				ruleID := deliveryRule.ID
				riderLeg = &domain.Leg{WalletID: rider.ID, Amount: deliverySplit.RiderAmount, Role: domain.LegRoleRider, RuleID: &ruleID}
			}
		} else {
			// Vendor self-delivery: the whole delivery fee goes to the vendor.
			vendorAmount += order.DeliveryFee
		}
	}

	orderRuleID := orderRule.ID
	legs = append(legs, domain.Leg{WalletID: vendor.ID, Amount: vendorAmount, Role: domain.LegRoleVendor, RuleID: &orderRuleID})
	if riderLeg != nil {
		legs = append(legs, *riderLeg)
	}
	if platformAmount > 0 {
		legs = append(legs, domain.Leg{WalletID: platform.ID, Amount: platformAmount, Role: domain.LegRolePlatform, RuleID: &orderRuleID})
	}

	orderID := order.OrderID
	txn := &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		Type:           domain.TransactionTypeOrderPayment,
		Status:         domain.StatusCreated,
		Amount:         total,
		Currency:       s.ledgerCfg.Currency,
		Legs:           legs,
		OrderID:        &orderID,
	}
	if err := s.txRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	return s.applyAndComplete(ctx, txn)
}

// --- Refunds and reversals ---

func (s *transactionService) CreateRefund(ctx context.Context, req ports.RefundRequest) (*domain.Transaction, error) {
	if prior, ok := s.replayed(ctx, req.IdempotencyKey); ok {
		return prior, nil
	}

	original, err := s.txRepo.GetByID(ctx, req.OriginalTransactionID)
	if err != nil {
		return nil, err
	}
	if !original.IsRefundable() {
		return nil, apperror.Validation("only completed order payments can be refunded")
	}

	originalID := original.ID
	reason := req.Reason
	refund := &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		Type:           domain.TransactionTypeRefund,
		Status:         domain.StatusCreated,
		Amount:         original.Amount,
		Currency:       original.Currency,
		Legs:           domain.InvertLegs(original.Legs),
		OrderID:        original.OrderID,
		OriginalTxID:   &originalID,
		FailureReason:  &reason,
	}
	if err := s.txRepo.Create(ctx, refund); err != nil {
		return nil, err
	}

	refund, err = s.applyAndComplete(ctx, refund)
	if err != nil {
		return nil, err
	}

	if _, err := s.txRepo.TransitionStatus(ctx, original.ID, domain.StatusCompleted, domain.StatusReversed); err != nil {
		return nil, err
	}
	s.notifier.TransactionEvent(ctx, original, EventTransactionReversed)
	return refund, nil
}

func (s *transactionService) CancelTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.Status == domain.StatusCancelled {
		return txn, nil
	}
	if !txn.IsCancellable() {
		return nil, apperror.ErrNotCancellable(string(txn.Status))
	}
	won, err := s.txRepo.TransitionStatus(ctx, id, domain.StatusCreated, domain.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		// Someone moved the transaction first; report what it became.
		return s.txRepo.GetByID(ctx, id)
	}
	txn.Status = domain.StatusCancelled
	return txn, nil
}

// --- Reconciliation-driven completion ---

// ConfirmExternal completes an externally funded transaction after the
// provider's record matched. Leg application is idempotent, so outflows
// whose funds were held at creation simply replay.
func (s *transactionService) ConfirmExternal(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.Status == domain.StatusCompleted {
		return txn, nil
	}

	won, err := s.txRepo.TransitionStatus(ctx, id, domain.StatusAwaitingReconciliation, domain.StatusApplying)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent worker owns this confirmation.
		return s.txRepo.GetByID(ctx, id)
	}
	txn.Status = domain.StatusApplying

	return s.applyAndComplete(ctx, txn)
}

// FailExternal fails an externally funded transaction. Outflows whose funds
// were already held get a compensating REVERSAL before the original is
// closed out.
func (s *transactionService) FailExternal(ctx context.Context, id uuid.UUID, reason string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.IsTerminal() {
		return txn, nil
	}

	fundsHeld := txn.Type == domain.TransactionTypeWithdrawal || txn.Type == domain.TransactionTypePayout
	if fundsHeld {
		if err := s.reverseHeldFunds(ctx, txn, reason); err != nil {
			return nil, err
		}
		won, err := s.txRepo.TransitionStatus(ctx, id, txn.Status, domain.StatusReversed)
		if err != nil {
			return nil, err
		}
		if won {
			txn.Status = domain.StatusReversed
			if err := s.txRepo.SetFailureReason(ctx, id, reason); err != nil {
				return nil, err
			}
			txn.FailureReason = &reason
			s.notifier.TransactionEvent(ctx, txn, EventTransactionReversed)
		}
		return txn, nil
	}

	won, err := s.txRepo.TransitionStatus(ctx, id, txn.Status, domain.StatusFailed)
	if err != nil {
		return nil, err
	}
	if won {
		txn.Status = domain.StatusFailed
		if err := s.txRepo.SetFailureReason(ctx, id, reason); err != nil {
			return nil, err
		}
		txn.FailureReason = &reason
		s.notifier.TransactionEvent(ctx, txn, EventTransactionFailed)
	}
	return txn, nil
}

// --- Shared mechanics ---

// applyAndComplete drives APPLYING -> ledger application -> COMPLETED.
// The caller must have moved the transaction into CREATED or APPLYING.
func (s *transactionService) applyAndComplete(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn.Status == domain.StatusCreated {
		if _, err := s.txRepo.TransitionStatus(ctx, txn.ID, domain.StatusCreated, domain.StatusApplying); err != nil {
			return nil, err
		}
		txn.Status = domain.StatusApplying
	}

	if _, err := s.walletSvc.ApplyTransactionLegs(ctx, txn.ID, txn.Legs); err != nil {
		s.failTransaction(ctx, txn, domain.StatusApplying, err.Error())
		return nil, err
	}

	if _, err := s.txRepo.TransitionStatus(ctx, txn.ID, domain.StatusApplying, domain.StatusCompleted); err != nil {
		return nil, err
	}
	txn.Status = domain.StatusCompleted

	s.cacheResult(ctx, txn)
	s.notifier.TransactionEvent(ctx, txn, EventTransactionCompleted)
	return txn, nil
}

// reverseHeldFunds synthesizes the compensating REVERSAL transaction for an
// outflow whose funds were held. Idempotent per original transaction.
func (s *transactionService) reverseHeldFunds(ctx context.Context, original *domain.Transaction, reason string) error {
	key := "reversal:" + original.ID.String()
	if _, ok := s.replayed(ctx, key); ok {
		return nil
	}

	originalID := original.ID
	reversal := &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: key,
		Type:           domain.TransactionTypeReversal,
		Status:         domain.StatusCreated,
		Amount:         original.Amount,
		Currency:       original.Currency,
		Legs:           domain.InvertLegs(original.Legs),
		OriginalTxID:   &originalID,
		FailureReason:  &reason,
	}
	if err := s.txRepo.Create(ctx, reversal); err != nil {
		return err
	}
	_, err := s.applyAndComplete(ctx, reversal)
	return err
}

// failTransaction moves txn from `from` to FAILED and records why. Losing
// the transition race is fine; the winner recorded its own reason.
func (s *transactionService) failTransaction(ctx context.Context, txn *domain.Transaction, from domain.TransactionStatus, reason string) {
	won, err := s.txRepo.TransitionStatus(ctx, txn.ID, from, domain.StatusFailed)
	if err != nil || !won {
		return
	}
	txn.Status = domain.StatusFailed
	if err := s.txRepo.SetFailureReason(ctx, txn.ID, reason); err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txn.ID.String()).Msg("failure reason write failed")
	}
	txn.FailureReason = &reason
	s.notifier.TransactionEvent(ctx, txn, EventTransactionFailed)
}
