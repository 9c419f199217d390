package service

import (
	"context"
	"errors"
	"fmt"

	"async-ledger/internal/core/domain"
	"async-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// SettlementHandlerImpl implements ports.SettlementHandler.
//
// One delivery settles one PENDING transaction inside a single database
// transaction. Deliveries for transactions that are no longer pending are
// acknowledged without effect, which makes redelivery harmless.
type SettlementHandlerImpl struct {
	txRepo      ports.TransactionRepository
	accountRepo ports.AccountRepository
	transactor  ports.DBTransactor
	cache       ports.AccountCache
	log         zerolog.Logger
}

// NewSettlementHandler creates a new SettlementHandlerImpl.
func NewSettlementHandler(
	txRepo ports.TransactionRepository,
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	cache ports.AccountCache,
	log zerolog.Logger,
) *SettlementHandlerImpl {
	return &SettlementHandlerImpl{
		txRepo:      txRepo,
		accountRepo: accountRepo,
		transactor:  transactor,
		cache:       cache,
		log:         log,
	}
}

// Handle settles the transaction named by evt. A returned error is transient.
func (h *SettlementHandlerImpl) Handle(ctx context.Context, evt domain.TransactionCreatedEvent, meta ports.DeliveryMetadata) error {
	log := h.log.With().
		Int64("tx_id", evt.TransactionID).
		Int("shard", meta.Shard).
		Uint("attempts", meta.Attempts).
		Str("correlation_id", meta.CorrelationID).
		Logger()

	txn, accounts, err := h.settle(ctx, evt.TransactionID)
	if errors.Is(err, domain.ErrAlreadyReversed) {
		// Another reversal of the same original committed first.
		return h.markFailed(ctx, evt.TransactionID, domain.MsgAlreadyReversed, log)
	}
	if err != nil {
		return err
	}
	if txn == nil {
		log.Debug().Msg("transaction not pending, skipping")
		return nil
	}

	if txn.Status != domain.TransactionStatusSuccess {
		log.Info().Str("status", string(txn.Status)).Str("reason", txn.ErrorMessage).Msg("transaction settled")
		return nil
	}

	log.Info().Str("status", string(txn.Status)).Msg("transaction settled")
	h.invalidate(ctx, accounts, log)
	return nil
}

func (h *SettlementHandlerImpl) settle(ctx context.Context, id int64) (*domain.Transaction, domain.Accounts, error) {
	dbTx, err := h.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := h.txRepo.GetPendingForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load pending transaction: %w", err)
	}
	if txn == nil {
		return nil, nil, nil
	}

	ids := txn.AccountIDs()
	if txn.Type == domain.TransactionTypeReversal && txn.ReversesID != nil {
		original, err := h.txRepo.GetByIDTx(ctx, dbTx, *txn.ReversesID)
		if err != nil {
			return nil, nil, fmt.Errorf("load original transaction: %w", err)
		}
		if original != nil {
			txn.Original = original
			ids = appendUnique(ids, original.AccountIDs()...)
		}
	}

	loaded, err := h.accountRepo.GetByIDsTx(ctx, dbTx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load accounts: %w", err)
	}
	accounts := domain.Accounts{}
	accounts.Add(loaded...)

	result := domain.Process(txn, accounts)
	if result.Succeeded {
		for _, acc := range accounts.Slice() {
			if err := h.accountRepo.Update(ctx, dbTx, acc); err != nil {
				return nil, nil, fmt.Errorf("update account %d: %w", acc.ID, err)
			}
		}
	}

	if err := h.txRepo.UpdateResult(ctx, dbTx, txn); err != nil {
		return nil, nil, fmt.Errorf("record result: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}
	return txn, accounts, nil
}

func (h *SettlementHandlerImpl) markFailed(ctx context.Context, id int64, reason string, log zerolog.Logger) error {
	dbTx, err := h.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := h.txRepo.GetPendingForUpdate(ctx, dbTx, id)
	if err != nil {
		return fmt.Errorf("load pending transaction: %w", err)
	}
	if txn == nil {
		return nil
	}

	domain.Fail(txn, reason)
	if err := h.txRepo.UpdateResult(ctx, dbTx, txn); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	log.Info().Str("status", string(txn.Status)).Str("reason", reason).Msg("transaction settled")
	return nil
}

// invalidate drops the cached projections of the touched accounts. The
// projection is rebuilt on the next read, so failures are only logged.
func (h *SettlementHandlerImpl) invalidate(ctx context.Context, accounts domain.Accounts, log zerolog.Logger) {
	keys := make([]string, 0, len(accounts))
	for _, acc := range accounts.Slice() {
		keys = append(keys, domain.AccountCacheKey(acc.OwnerID, acc.ID))
	}
	if err := h.cache.Invalidate(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("account cache invalidation failed")
	}
}

func appendUnique(ids []int64, more ...int64) []int64 {
	for _, id := range more {
		seen := false
		for _, existing := range ids {
			if existing == id {
				seen = true
				break
			}
		}
		if !seen {
			ids = append(ids, id)
		}
	}
	return ids
}
