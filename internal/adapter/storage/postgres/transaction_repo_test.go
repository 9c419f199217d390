package postgres

import (
	"context"
	"testing"
	"time"

	"async-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(id int64) *domain.Transaction {
	dst := int64(2)
	return &domain.Transaction{
		ID:                   id,
		ReferenceID:          uuid.New(),
		Type:                 domain.TransactionTypeTransfer,
		Status:               domain.TransactionStatusPending,
		Amount:               decimal.NewFromInt(40),
		Currency:             "BRL",
		SourceAccountID:      1,
		DestinationAccountID: &dst,
		CorrelationID:        "corr-1",
		CreatedAt:            time.Now().UTC().Truncate(time.Microsecond),
	}
}

func txColumns() []string {
	return []string{"id", "reference_id", "type", "status", "amount", "currency",
		"source_account_id", "destination_account_id", "reverses_transaction_id",
		"error_message", "correlation_id", "created_at", "processed_at", "reversed"}
}

func txRows(txns ...*domain.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows(txColumns())
	for _, t := range txns {
		rows.AddRow(
			t.ID, t.ReferenceID, t.Type, t.Status, t.Amount, t.Currency,
			t.SourceAccountID, t.DestinationAccountID, t.ReversesID,
			t.ErrorMessage, t.CorrelationID, t.CreatedAt, t.ProcessedAt, t.Reversed,
		)
	}
	return rows
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(0)
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO transactions .+ RETURNING id, created_at").
		WithArgs(
			txn.ReferenceID, txn.Type, txn.Status, txn.Amount, txn.Currency,
			txn.SourceAccountID, txn.DestinationAccountID, txn.ReversesID, txn.CorrelationID,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(55), createdAt))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, txn)
	require.NoError(t, err)
	assert.Equal(t, int64(55), txn.ID)
	assert.Equal(t, createdAt, txn.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(10)
	txn.Status = domain.TransactionStatusSuccess
	txn.Reversed = true

	mock.ExpectQuery("SELECT .+ FROM transactions t WHERE t.id").
		WithArgs(txn.ID).
		WillReturnRows(txRows(txn))

	result, err := repo.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ReferenceID, result.ReferenceID)
	assert.Equal(t, domain.TransactionTypeTransfer, result.Type)
	require.NotNil(t, result.DestinationAccountID)
	assert.Equal(t, int64(2), *result.DestinationAccountID)
	assert.True(t, result.Reversed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions t WHERE t.id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	result, err := repo.GetByID(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetPendingForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(10)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ WHERE t.id = .+ AND t.status = 'PENDING' FOR UPDATE OF t").
		WithArgs(txn.ID).
		WillReturnRows(txRows(txn))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetPendingForUpdate(context.Background(), dbTx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsPending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetPendingForUpdate_AlreadySettled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF t").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetPendingForUpdate(context.Background(), dbTx, 10)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestTransactionRepo_UpdateResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(10)
	now := time.Now().UTC()
	txn.Status = domain.TransactionStatusFailure
	txn.ErrorMessage = "insufficient balance in source account"
	txn.ProcessedAt = &now

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET status .+ WHERE id = .+ AND status = 'PENDING'").
		WithArgs(txn.Status, txn.ErrorMessage, txn.ProcessedAt, txn.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateResult(context.Background(), dbTx, txn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_UpdateResult_NoLongerPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(10)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), txn.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateResult(context.Background(), dbTx, txn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer pending")
}

func TestTransactionRepo_UpdateResult_DuplicateReversal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(11)
	txn.Type = domain.TransactionTypeReversal
	txn.Status = domain.TransactionStatusSuccess

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), txn.ID).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_transactions_single_reversal"})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateResult(context.Background(), dbTx, txn)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
}

func TestTransactionRepo_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("WHERE t.source_account_id = .+ OR t.destination_account_id").
		WithArgs(int64(1)).
		WillReturnRows(txRows(newTestTransaction(2), newTestTransaction(1)))

	result, err := repo.ListByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(2), result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListReversible(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction(3)
	txn.Status = domain.TransactionStatusSuccess

	mock.ExpectQuery("t.status = 'SUCCESS' AND t.type <> 'REVERSAL' AND NOT EXISTS").
		WithArgs(int64(1)).
		WillReturnRows(txRows(txn))

	result, err := repo.ListReversible(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, int64(3), result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
