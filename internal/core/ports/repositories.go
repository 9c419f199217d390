package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"async-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
// Lookups return (nil, nil) when the account does not exist.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	// GetByIDsTx loads accounts inside a settlement transaction, locking
	// the rows FOR UPDATE in ascending id order.
	GetByIDsTx(ctx context.Context, tx pgx.Tx, ids []int64) ([]*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Account, error)
	// ListTransferTargets returns active accounts other than excludeID.
	ListTransferTargets(ctx context.Context, excludeID int64) ([]domain.Account, error)
	// Update writes balances guarded by the version token and bumps it.
	// Returns domain.ErrConcurrentUpdate when the row changed since it was read.
	Update(ctx context.Context, tx pgx.Tx, account *domain.Account) error
}

// TransactionRepository defines persistence operations for transactions.
// Every loaded transaction carries Reversed, computed from existing successful reversals.
type TransactionRepository interface {
	// Create inserts t and fills its ID and CreatedAt.
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error)
	// GetPendingForUpdate locks and returns the transaction only while it is PENDING.
	GetPendingForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error)
	// UpdateResult records the terminal status of a PENDING transaction.
	// Returns domain.ErrAlreadyReversed when a second successful reversal would be stored.
	UpdateResult(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	// ListByAccount returns transactions where accountID is source or destination, newest first.
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error)
	// ListReversible returns successful, not yet reversed, non-reversal transactions sourced from accountID.
	ListReversible(ctx context.Context, accountID int64) ([]domain.Transaction, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
