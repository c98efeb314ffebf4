package service

import (
	"context"
	"errors"
	"sort"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// walletService is the Wallet Core. ApplyTransactionLegs is the single
// primitive through which every balance in the system changes.
type walletService struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	cfg        config.LedgerConfig
	log        zerolog.Logger
}

func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	cfg config.LedgerConfig,
	log zerolog.Logger,
) ports.WalletService {
	return &walletService{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		cfg:        cfg,
		log:        log,
	}
}

func (s *walletService) CreateWallet(ctx context.Context, ownerID string, ownerType domain.OwnerType, currency string) (*domain.Wallet, error) {
	if ownerID == "" {
		return nil, apperror.Validation("owner_id is required")
	}
	if currency == "" {
		currency = s.cfg.Currency
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Currency:  currency,
		Balance:   0,
		Version:   1,
		Status:    domain.WalletStatusActive,
		// Platform and external wallets may run negative balances.
		CreditEligible: ownerType == domain.OwnerTypePlatform || ownerType == domain.OwnerTypeExternal,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("owner_id", ownerID).
		Str("owner_type", string(ownerType)).
		Msg("wallet created")
	return wallet, nil
}

func (s *walletService) GetBalance(ctx context.Context, walletID uuid.UUID) (int64, int64, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return 0, 0, err
	}
	return wallet.Balance, wallet.Version, nil
}

func (s *walletService) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	return s.walletRepo.GetByID(ctx, walletID)
}

// ExternalWallet resolves the virtual counter-wallet for a provider,
// creating it on first use. Losing the creation race falls back to the
// winner's wallet.
func (s *walletService) ExternalWallet(ctx context.Context, provider string, currency string) (*domain.Wallet, error) {
	ownerID := "ext:" + provider
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerID, currency)
	if err == nil {
		return wallet, nil
	}
	if !apperror.IsCode(err, apperror.CodeNotFound) {
		return nil, err
	}

	wallet, err = s.CreateWallet(ctx, ownerID, domain.OwnerTypeExternal, currency)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeWalletExists) {
			return s.walletRepo.GetByOwner(ctx, ownerID, currency)
		}
		return nil, err
	}
	return wallet, nil
}

// ApplyTransactionLegs applies every leg of a transaction in one database
// transaction. All legs commit or none do. Each wallet write is an
// optimistic compare-and-swap; on any version conflict the whole attempt is
// rolled back and recomputed from fresh balances, up to the configured
// attempt cap. Replays keyed by transactionID return the original entries.
func (s *walletService) ApplyTransactionLegs(ctx context.Context, transactionID uuid.UUID, legs []domain.Leg) (*ports.ApplyResult, error) {
	if len(legs) < 2 {
		return nil, apperror.Validation("a transaction needs at least two legs")
	}
	if sum := domain.LegSum(legs); sum != 0 {
		return nil, apperror.ErrUnbalancedLegs(sum)
	}
	seen := make(map[uuid.UUID]bool, len(legs))
	for _, leg := range legs {
		if seen[leg.WalletID] {
			return nil, apperror.Validation("duplicate wallet in transaction legs")
		}
		seen[leg.WalletID] = true
	}

	// Fast replay check before any locking work.
	if existing, err := s.ledgerRepo.ListByTransaction(ctx, transactionID); err == nil && len(existing) > 0 {
		return &ports.ApplyResult{TransactionID: transactionID, Entries: existing, Replayed: true}, nil
	}

	// Deterministic leg order keeps concurrent multi-wallet applications
	// from livelocking against each other.
	ordered := make([]domain.Leg, len(legs))
	copy(ordered, legs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].WalletID.String() < ordered[j].WalletID.String()
	})

	maxAttempts := s.cfg.MaxApplyAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := s.applyOnce(ctx, transactionID, ordered)
		if err == nil {
			return result, nil
		}
		if !apperror.IsCode(err, apperror.CodeConflict) {
			return nil, err
		}
		lastErr = err
		s.log.Debug().
			Str("transaction_id", transactionID.String()).
			Int("attempt", attempt).
			Msg("optimistic conflict, recomputing legs")
	}
	return nil, lastErr
}

func (s *walletService) applyOnce(ctx context.Context, transactionID uuid.UUID, legs []domain.Leg) (*ports.ApplyResult, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer tx.Rollback(ctx)

	entries := make([]domain.LedgerEntry, 0, len(legs))
	for _, leg := range legs {
		wallet, err := s.walletRepo.GetInTx(ctx, tx, leg.WalletID)
		if err != nil {
			return nil, err
		}
		if !wallet.IsActive() {
			return nil, apperror.ErrWalletFrozen(wallet.ID.String())
		}
		if leg.Amount < 0 && !wallet.CanDebit(-leg.Amount) {
			return nil, apperror.ErrInsufficientFunds(wallet.ID.String())
		}

		newBalance := wallet.Balance + leg.Amount
		applied, err := s.walletRepo.UpdateBalanceVersioned(ctx, tx, wallet.ID, newBalance, wallet.Version)
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		if !applied {
			return nil, apperror.ErrConflict(wallet.ID.String())
		}

		entry := domain.LedgerEntry{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			TransactionID: transactionID,
			Amount:        leg.Amount,
			BalanceAfter:  newBalance,
			Kind:          domain.KindForAmount(leg.Amount),
		}
		if err := s.ledgerRepo.Insert(ctx, tx, &entry); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// Another worker applied this transaction between our replay
				// check and now. Surrender to the winner.
				return s.replayedResult(ctx, transactionID)
			}
			return nil, apperror.InternalError(err)
		}
		entries = append(entries, entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}
	return &ports.ApplyResult{TransactionID: transactionID, Entries: entries}, nil
}

func (s *walletService) replayedResult(ctx context.Context, transactionID uuid.UUID) (*ports.ApplyResult, error) {
	existing, err := s.ledgerRepo.ListByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return &ports.ApplyResult{TransactionID: transactionID, Entries: existing, Replayed: true}, nil
}
