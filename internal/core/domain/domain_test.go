package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccount_IsActive(t *testing.T) {
	tests := []struct {
		name   string
		status AccountStatus
		want   bool
	}{
		{"active", AccountStatusActive, true},
		{"blocked", AccountStatusBlocked, false},
		{"closed", AccountStatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{Status: tt.status}
			assert.Equal(t, tt.want, a.IsActive())
		})
	}
}

func TestAccount_CanDebit(t *testing.T) {
	a := &Account{Available: decimal.NewFromInt(10), CreditLimit: decimal.NewFromInt(5)}

	assert.True(t, a.CanDebit(decimal.NewFromInt(15)))
	assert.False(t, a.CanDebit(decimal.NewFromInt(16)))
	assert.True(t, decimal.NewFromInt(10).Equal(a.Total()))
}

func TestAccounts_GetAndSlice(t *testing.T) {
	m := Accounts{}
	m.Add(&Account{ID: 2}, nil, &Account{ID: 1})

	id := int64(2)
	assert.Equal(t, int64(2), m.Get(&id).ID)
	assert.Nil(t, m.Get(nil))

	missing := int64(9)
	assert.Nil(t, m.Get(&missing))

	s := m.Slice()
	assert.Len(t, s, 2)
	assert.Equal(t, int64(1), s[0].ID)
}

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status TransactionStatus
		want   bool
	}{
		{"pending", TransactionStatusPending, false},
		{"success", TransactionStatusSuccess, true},
		{"failure", TransactionStatusFailure, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
			assert.Equal(t, !tt.want, tx.IsPending())
		})
	}
}

func TestTransaction_CanBeReversed(t *testing.T) {
	tests := []struct {
		name     string
		txType   TransactionType
		status   TransactionStatus
		reversed bool
		want     bool
	}{
		{"successful debit", TransactionTypeDebit, TransactionStatusSuccess, false, true},
		{"failed debit", TransactionTypeDebit, TransactionStatusFailure, false, false},
		{"pending transfer", TransactionTypeTransfer, TransactionStatusPending, false, false},
		{"successful reversal", TransactionTypeReversal, TransactionStatusSuccess, false, false},
		{"already reversed", TransactionTypeCredit, TransactionStatusSuccess, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Type: tt.txType, Status: tt.status, Reversed: tt.reversed}
			assert.Equal(t, tt.want, tx.CanBeReversed())
		})
	}
}

func TestTransaction_AccountIDs(t *testing.T) {
	dst := int64(7)
	same := int64(3)

	assert.Equal(t, []int64{3}, (&Transaction{SourceAccountID: 3}).AccountIDs())
	assert.Equal(t, []int64{3, 7}, (&Transaction{SourceAccountID: 3, DestinationAccountID: &dst}).AccountIDs())
	assert.Equal(t, []int64{3}, (&Transaction{SourceAccountID: 3, DestinationAccountID: &same}).AccountIDs())
}

func TestFitsAmountScale(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"10", true},
		{"10.5", true},
		{"10.50", true},
		{"10.500", true},
		{"0.01", true},
		{"0.004", false},
		{"10.005", false},
		{"-0.001", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FitsAmountScale(decimal.RequireFromString(tt.amount)), tt.amount)
	}
}

func TestParseTransactionType(t *testing.T) {
	for _, tt := range AllTransactionTypes {
		got, ok := ParseTransactionType(string(tt))
		assert.True(t, ok)
		assert.Equal(t, tt, got)
	}

	_, ok := ParseTransactionType("REFUND")
	assert.False(t, ok)
	_, ok = ParseTransactionType("credit")
	assert.False(t, ok)
}

func TestAccountCacheKey(t *testing.T) {
	assert.Equal(t, "Account:12:345", AccountCacheKey(12, 345))
}
