package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"async-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// TokenService validates bearer tokens issued elsewhere.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	OwnerID int64
}

// --- Service Ports (Business Logic) ---

// TransactionService accepts operation requests and queues them for settlement.
type TransactionService interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest, correlationID string) (*TransactionSummary, error)
	ListTransactions(ctx context.Context, ownerID, accountID int64) ([]domain.Transaction, error)
	ListReversible(ctx context.Context, ownerID, accountID int64) ([]domain.Transaction, error)
}

// CreateTransactionRequest holds the caller's operation request.
type CreateTransactionRequest struct {
	OwnerID              int64
	Operation            domain.TransactionType
	SourceAccountID      int64
	DestinationAccountID *int64
	ReversesID           *int64
	Amount               decimal.Decimal
	Currency             string
}

// TransactionSummary is returned when a transaction has been queued.
// Balances are the source account's values as read at request time, before settlement.
type TransactionSummary struct {
	TransactionID int64                    `json:"transaction_id"`
	Status        domain.TransactionStatus `json:"status"`
	Available     decimal.Decimal          `json:"available"`
	Reserved      decimal.Decimal          `json:"reserved"`
	Total         decimal.Decimal          `json:"total"`
	Shard         int                      `json:"shard"`
	CreatedAt     time.Time                `json:"created_at"`
}

// AccountService serves the account read projection.
type AccountService interface {
	GetAccount(ctx context.Context, ownerID, accountID int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, ownerID int64) ([]domain.Account, error)
	ListTransferTargets(ctx context.Context, ownerID, accountID int64) ([]domain.Account, error)
}
