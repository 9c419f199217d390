package postgres

import (
	"context"
	"errors"
	"fmt"

	"async-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation       = "23505"
	singleReversalIndexName = "ux_transactions_single_reversal"
)

// transactionSelect loads a transaction together with whether a successful reversal references it.
const transactionSelect = `SELECT t.id, t.reference_id, t.type, t.status, t.amount, t.currency,
		t.source_account_id, t.destination_account_id, t.reverses_transaction_id,
		COALESCE(t.error_message, ''), COALESCE(t.correlation_id, ''), t.created_at, t.processed_at,
		EXISTS (SELECT 1 FROM transactions r
			WHERE r.reverses_transaction_id = t.id AND r.type = 'REVERSAL' AND r.status = 'SUCCESS') AS reversed
		FROM transactions t`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (reference_id, type, status, amount, currency,
		source_account_id, destination_account_id, reverses_transaction_id, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		t.ReferenceID, t.Type, t.Status, t.Amount, t.Currency,
		t.SourceAccountID, t.DestinationAccountID, t.ReversesID, t.CorrelationID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by id.
func (r *TransactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, transactionSelect+` WHERE t.id = $1`, id))
}

// GetByIDTx fetches a transaction by id inside a database transaction.
func (r *TransactionRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, transactionSelect+` WHERE t.id = $1`, id))
}

// GetPendingForUpdate locks a PENDING transaction. A settled or unknown id yields (nil, nil).
func (r *TransactionRepo) GetPendingForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error) {
	query := transactionSelect + ` WHERE t.id = $1 AND t.status = 'PENDING' FOR UPDATE OF t`
	return scanTransaction(tx.QueryRow(ctx, query, id))
}

// UpdateResult stores the terminal status of a PENDING transaction.
func (r *TransactionRepo) UpdateResult(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `UPDATE transactions SET status = $1, error_message = NULLIF($2, ''), processed_at = $3
		WHERE id = $4 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, t.Status, t.ErrorMessage, t.ProcessedAt, t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == singleReversalIndexName {
			return fmt.Errorf("update transaction %d: %w", t.ID, domain.ErrAlreadyReversed)
		}
		return fmt.Errorf("update transaction result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d is no longer pending", t.ID)
	}
	return nil
}

// ListByAccount returns transactions touching accountID, newest first.
func (r *TransactionRepo) ListByAccount(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	query := transactionSelect + ` WHERE t.source_account_id = $1 OR t.destination_account_id = $1
		ORDER BY t.created_at DESC, t.id DESC`
	return r.list(ctx, "list transactions by account", query, accountID)
}

// ListReversible returns transactions of accountID that a reversal may still target.
func (r *TransactionRepo) ListReversible(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	query := transactionSelect + ` WHERE t.source_account_id = $1
		AND t.status = 'SUCCESS' AND t.type <> 'REVERSAL'
		AND NOT EXISTS (SELECT 1 FROM transactions r
			WHERE r.reverses_transaction_id = t.id AND r.type = 'REVERSAL' AND r.status = 'SUCCESS')
		ORDER BY t.created_at DESC, t.id DESC`
	return r.list(ctx, "list reversible transactions", query, accountID)
}

func (r *TransactionRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := scanTransactionInto(rows, &t); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	if err := scanTransactionInto(row, t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func scanTransactionInto(row pgx.Row, t *domain.Transaction) error {
	return row.Scan(
		&t.ID, &t.ReferenceID, &t.Type, &t.Status, &t.Amount, &t.Currency,
		&t.SourceAccountID, &t.DestinationAccountID, &t.ReversesID,
		&t.ErrorMessage, &t.CorrelationID, &t.CreatedAt, &t.ProcessedAt,
		&t.Reversed,
	)
}
