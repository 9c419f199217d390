package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of *pgxpool.Pool the repositories use.
// pgxmock.PgxPoolIface satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// ledgerTxOptions is used for every ledger write. READ COMMITTED is enough
// because settlement serializes on FOR UPDATE row locks and the account
// version column, and the request path only inserts PENDING rows.
var ledgerTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

// Transactor implements ports.DBTransactor on top of a Pool.
type Transactor struct {
	pool Pool
	opts pgx.TxOptions
}

func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool, opts: ledgerTxOptions}
}

// Begin opens a read-write ledger transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, t.opts)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", t.opts.IsoLevel, err)
	}
	return tx, nil
}
