package service

import (
	"context"
	"fmt"
	"time"

	"async-ledger/internal/core/domain"
	"async-ledger/internal/core/ports"
	"async-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService with a read-through cache.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	cache       ports.AccountCache
	ttl         time.Duration
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(accountRepo ports.AccountRepository, cache ports.AccountCache, ttl time.Duration, log zerolog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		cache:       cache,
		ttl:         ttl,
		log:         log,
	}
}

// GetAccount returns the caller's account, served from cache when present.
// Cache errors degrade to a database read.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, ownerID, accountID int64) (*domain.Account, error) {
	cached, err := s.cache.Get(ctx, ownerID, accountID)
	if err != nil {
		s.log.Warn().Err(err).Int64("account_id", accountID).Msg("account cache read failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if acc == nil || acc.OwnerID != ownerID {
		return nil, apperror.ErrNotFound("Account")
	}

	if err := s.cache.Set(ctx, acc, s.ttl); err != nil {
		s.log.Warn().Err(err).Int64("account_id", accountID).Msg("failed to cache account")
	}
	return acc, nil
}

// ListAccounts returns every account of the caller.
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, ownerID int64) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

// ListTransferTargets returns active accounts other than accountID, which must belong to the caller.
func (s *AccountServiceImpl) ListTransferTargets(ctx context.Context, ownerID, accountID int64) ([]domain.Account, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if acc == nil || acc.OwnerID != ownerID {
		return nil, apperror.ErrNotFound("Account")
	}

	targets, err := s.accountRepo.ListTransferTargets(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transfer targets: %w", err))
	}
	return targets, nil
}
