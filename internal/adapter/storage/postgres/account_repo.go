package postgres

import (
	"context"
	"errors"
	"fmt"

	"async-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, owner_id, available, reserved, credit_limit, status, version, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// GetByID fetches an account by id (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a := &domain.Account{}
	err := scanAccount(r.pool.QueryRow(ctx, query, id), a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// GetByIDsTx locks and loads the given accounts inside a settlement
// transaction. Rows are locked in id order so two shards settling transfers
// between the same pair of accounts cannot deadlock. Missing ids are simply
// absent from the result.
func (r *AccountRepo) GetByIDsTx(ctx context.Context, tx pgx.Tx, ids []int64) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get accounts by ids: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a := &domain.Account{}
		if err := scanAccount(rows, a); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

// ListByOwner returns all accounts of an owner.
func (r *AccountRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY id`
	return r.list(ctx, "list accounts by owner", query, ownerID)
}

// ListTransferTargets returns active accounts other than excludeID.
func (r *AccountRepo) ListTransferTargets(ctx context.Context, excludeID int64) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id <> $1 AND status = 'ACTIVE' ORDER BY id`
	return r.list(ctx, "list transfer targets", query, excludeID)
}

// Update writes balances if the row still carries the version that was read.
func (r *AccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts SET available = $1, reserved = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4`

	tag, err := tx.Exec(ctx, query, a.Available, a.Reserved, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("update account %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update account %d: %w", a.ID, domain.ErrConcurrentUpdate)
	}
	a.Version++
	return nil
}

func (r *AccountRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

func scanAccount(row pgx.Row, a *domain.Account) error {
	return row.Scan(
		&a.ID, &a.OwnerID, &a.Available, &a.Reserved, &a.CreditLimit,
		&a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
}
