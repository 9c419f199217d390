package service

import (
	"context"
	"fmt"
	"strings"

	"async-ledger/internal/core/domain"
	"async-ledger/internal/core/ports"
	"async-ledger/pkg/apperror"
	"async-ledger/pkg/shard"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransactionServiceImpl implements ports.TransactionService.
type TransactionServiceImpl struct {
	txRepo      ports.TransactionRepository
	accountRepo ports.AccountRepository
	transactor  ports.DBTransactor
	publisher   ports.SettlementPublisher
	shardCount  int
	log         zerolog.Logger
}

// NewTransactionService creates a new TransactionServiceImpl.
func NewTransactionService(
	txRepo ports.TransactionRepository,
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	publisher ports.SettlementPublisher,
	shardCount int,
	log zerolog.Logger,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		txRepo:      txRepo,
		accountRepo: accountRepo,
		transactor:  transactor,
		publisher:   publisher,
		shardCount:  shardCount,
		log:         log,
	}
}

// CreateTransaction validates req, stores it as PENDING and publishes it to
// the owner's shard. Validation failures write nothing and publish nothing.
// A publish failure after the insert returns SYS_004; the pending row stays.
func (s *TransactionServiceImpl) CreateTransaction(ctx context.Context, req ports.CreateTransactionRequest, correlationID string) (*ports.TransactionSummary, error) {
	if !req.Operation.IsValid() {
		return nil, apperror.ErrInvalidOperation()
	}

	source, err := s.ownedActiveAccount(ctx, req.OwnerID, req.SourceAccountID)
	if err != nil {
		return nil, err
	}

	if req.Operation != domain.TransactionTypeReversal {
		if !req.Amount.IsPositive() {
			return nil, apperror.ErrInvalidAmount()
		}
		if !domain.FitsAmountScale(req.Amount) {
			return nil, apperror.ErrAmountScale()
		}
		if strings.TrimSpace(req.Currency) == "" {
			return nil, apperror.Validation("Currency is required")
		}
	}

	txn := &domain.Transaction{
		ReferenceID:     uuid.New(),
		Type:            req.Operation,
		Status:          domain.TransactionStatusPending,
		Amount:          req.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		SourceAccountID: source.ID,
		CorrelationID:   correlationID,
	}
	summaryAccount := source

	switch req.Operation {
	case domain.TransactionTypeTransfer:
		if err := s.validateTransferDestination(ctx, source, req.DestinationAccountID); err != nil {
			return nil, err
		}
		dst := *req.DestinationAccountID
		txn.DestinationAccountID = &dst

	case domain.TransactionTypeReversal:
		original, originalSource, err := s.resolveReversal(ctx, req)
		if err != nil {
			return nil, err
		}
		id := original.ID
		txn.ReversesID = &id
		txn.Amount = original.Amount
		txn.Currency = original.Currency
		txn.SourceAccountID = original.SourceAccountID
		txn.DestinationAccountID = original.DestinationAccountID
		summaryAccount = originalSource
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	shardIdx := shard.ForOwner(req.OwnerID, s.shardCount)
	evt := domain.TransactionCreatedEvent{TransactionID: txn.ID}
	if err := s.publisher.PublishTransactionCreated(ctx, evt, shardIdx, correlationID); err != nil {
		s.log.Error().Err(err).
			Int64("tx_id", txn.ID).
			Int64("owner_id", req.OwnerID).
			Int("shard", shardIdx).
			Str("correlation_id", correlationID).
			Msg("settlement event not confirmed, transaction left pending")
		return nil, apperror.ErrPublishFailed(err)
	}

	s.log.Info().
		Int64("tx_id", txn.ID).
		Str("type", string(txn.Type)).
		Int64("account_id", txn.SourceAccountID).
		Int64("owner_id", req.OwnerID).
		Int("shard", shardIdx).
		Str("correlation_id", correlationID).
		Msg("transaction queued for settlement")

	return &ports.TransactionSummary{
		TransactionID: txn.ID,
		Status:        txn.Status,
		Available:     summaryAccount.Available,
		Reserved:      summaryAccount.Reserved,
		Total:         summaryAccount.Total(),
		Shard:         shardIdx,
		CreatedAt:     txn.CreatedAt,
	}, nil
}

func (s *TransactionServiceImpl) ownedActiveAccount(ctx context.Context, ownerID, accountID int64) (*domain.Account, error) {
	if accountID <= 0 {
		return nil, apperror.Validation("Source account id must be a positive integer")
	}
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	// Accounts of other owners are reported as missing.
	if acc == nil || acc.OwnerID != ownerID {
		return nil, apperror.ErrNotFound("Source account")
	}
	if !acc.IsActive() {
		return nil, apperror.ErrAccountInactive()
	}
	return acc, nil
}

func (s *TransactionServiceImpl) validateTransferDestination(ctx context.Context, source *domain.Account, destID *int64) error {
	if destID == nil || *destID <= 0 {
		return apperror.Validation("Destination account is required for transfer")
	}
	if *destID == source.ID {
		return apperror.Validation("Destination account must differ from source account")
	}
	dst, err := s.accountRepo.GetByID(ctx, *destID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get destination account: %w", err))
	}
	if dst == nil {
		return apperror.ErrNotFound("Destination account")
	}
	if !dst.IsActive() {
		return apperror.ErrAccountInactive()
	}
	return nil
}

// resolveReversal returns the original transaction and its source account.
func (s *TransactionServiceImpl) resolveReversal(ctx context.Context, req ports.CreateTransactionRequest) (*domain.Transaction, *domain.Account, error) {
	if req.ReversesID == nil || *req.ReversesID <= 0 {
		return nil, nil, apperror.Validation("Transaction to reverse is required for reversal")
	}

	original, err := s.txRepo.GetByID(ctx, *req.ReversesID)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(fmt.Errorf("get original transaction: %w", err))
	}
	if original == nil {
		return nil, nil, apperror.ErrNotFound("Transaction")
	}
	if original.Status != domain.TransactionStatusSuccess || original.Type == domain.TransactionTypeReversal {
		return nil, nil, apperror.ErrNotReversible()
	}

	src, err := s.accountRepo.GetByID(ctx, original.SourceAccountID)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(fmt.Errorf("get original source account: %w", err))
	}
	if src == nil || src.OwnerID != req.OwnerID {
		return nil, nil, apperror.ErrForbidden("You are not allowed to reverse this transaction")
	}

	if original.Reversed {
		return nil, nil, apperror.ErrAlreadyReversed()
	}
	return original, src, nil
}

// ListTransactions returns the transactions of an account owned by the caller.
func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, ownerID, accountID int64) ([]domain.Transaction, error) {
	if err := s.requireOwnedAccount(ctx, ownerID, accountID); err != nil {
		return nil, err
	}
	txns, err := s.txRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, nil
}

// ListReversible returns the caller's transactions that a reversal may still target.
func (s *TransactionServiceImpl) ListReversible(ctx context.Context, ownerID, accountID int64) ([]domain.Transaction, error) {
	if err := s.requireOwnedAccount(ctx, ownerID, accountID); err != nil {
		return nil, err
	}
	txns, err := s.txRepo.ListReversible(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list reversible transactions: %w", err))
	}
	return txns, nil
}

func (s *TransactionServiceImpl) requireOwnedAccount(ctx context.Context, ownerID, accountID int64) error {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if acc == nil || acc.OwnerID != ownerID {
		return apperror.ErrNotFound("Account")
	}
	return nil
}
