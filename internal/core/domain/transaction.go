package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of balance movement.
type TransactionType string

const (
	TransactionTypeCredit   TransactionType = "CREDIT"
	TransactionTypeDebit    TransactionType = "DEBIT"
	TransactionTypeHold     TransactionType = "HOLD"
	TransactionTypeCapture  TransactionType = "CAPTURE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeReversal TransactionType = "REVERSAL"
)

// AllTransactionTypes lists every supported type. The processor matches on each of them.
var AllTransactionTypes = []TransactionType{
	TransactionTypeCredit,
	TransactionTypeDebit,
	TransactionTypeHold,
	TransactionTypeCapture,
	TransactionTypeTransfer,
	TransactionTypeReversal,
}

// IsValid returns true for a known transaction type.
func (t TransactionType) IsValid() bool {
	for _, v := range AllTransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseTransactionType accepts the upper-case wire names.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(s)
	return t, t.IsValid()
}

// TransactionStatus represents the lifecycle state of a transaction.
// PENDING moves exactly once to SUCCESS or FAILURE.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailure TransactionStatus = "FAILURE"
)

// MaxErrorMessageLength bounds the persisted failure reason, in characters.
const MaxErrorMessageLength = 2000

// AmountScale is the number of decimal places stored for money columns.
const AmountScale int32 = 2

// FitsAmountScale reports whether amount can be stored without rounding.
// Trailing zeros are fine: 10.500 fits, 10.005 does not.
func FitsAmountScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(AmountScale))
}

// Transaction is one requested operation against one or two accounts.
type Transaction struct {
	ID                   int64             `json:"id"`
	ReferenceID          uuid.UUID         `json:"reference_id"`
	Type                 TransactionType   `json:"type"`
	Status               TransactionStatus `json:"status"`
	Amount               decimal.Decimal   `json:"amount"`
	Currency             string            `json:"currency"`
	SourceAccountID      int64             `json:"source_account_id"`
	DestinationAccountID *int64            `json:"destination_account_id,omitempty"`
	ReversesID           *int64            `json:"reverses_transaction_id,omitempty"`
	ErrorMessage         string            `json:"error_message,omitempty"`
	CorrelationID        string            `json:"correlation_id,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	ProcessedAt          *time.Time        `json:"processed_at,omitempty"`

	// Original is the reversed transaction, loaded only while settling a reversal.
	Original *Transaction `json:"-"`
	// Reversed is set on a loaded original when a successful reversal already references it.
	Reversed bool `json:"-"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailure
}

// IsPending returns true while the transaction awaits settlement.
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// CanBeReversed reports whether t is eligible as the target of a reversal.
func (t *Transaction) CanBeReversed() bool {
	return t.Status == TransactionStatusSuccess && t.Type != TransactionTypeReversal && !t.Reversed
}

// AccountIDs returns the ids of the accounts t touches.
func (t *Transaction) AccountIDs() []int64 {
	ids := []int64{t.SourceAccountID}
	if t.DestinationAccountID != nil && *t.DestinationAccountID != t.SourceAccountID {
		ids = append(ids, *t.DestinationAccountID)
	}
	return ids
}
