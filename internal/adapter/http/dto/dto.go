package dto

import (
	"time"

	"async-ledger/internal/core/domain"
	"async-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// CreateTransactionRequest is the request body for POST /api/v1/transactions.
// Amount and currency are ignored for a reversal; they are copied from the original.
type CreateTransactionRequest struct {
	Operation             string          `json:"operation" binding:"required,ledger_operation"`
	SourceAccountID       int64           `json:"source_account_id" binding:"required,gt=0"`
	DestinationAccountID  *int64          `json:"destination_account_id,omitempty" binding:"omitempty,gt=0"`
	ReversesTransactionID *int64          `json:"reverses_transaction_id,omitempty" binding:"omitempty,gt=0"`
	Amount                decimal.Decimal `json:"amount" binding:"money_scale"`
	Currency              string          `json:"currency" binding:"omitempty,currency_code"`
}

// ToPort maps the request body onto the service request for owner.
func (r CreateTransactionRequest) ToPort(ownerID int64) ports.CreateTransactionRequest {
	op, _ := domain.ParseTransactionType(normalizeOperation(r.Operation))
	return ports.CreateTransactionRequest{
		OwnerID:              ownerID,
		Operation:            op,
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		ReversesID:           r.ReversesTransactionID,
		Amount:               r.Amount,
		Currency:             r.Currency,
	}
}

// AccountResponse is the read projection of one account.
type AccountResponse struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Available   decimal.Decimal `json:"available"`
	Reserved    decimal.Decimal `json:"reserved"`
	Total       decimal.Decimal `json:"total"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Status      string          `json:"status"`
	UpdatedAt   string          `json:"updated_at"`
}

// NewAccountResponse maps a domain account.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Available:   a.Available,
		Reserved:    a.Reserved,
		Total:       a.Total(),
		CreditLimit: a.CreditLimit,
		Status:      string(a.Status),
		UpdatedAt:   a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewAccountListResponse maps a slice of domain accounts.
func NewAccountListResponse(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, NewAccountResponse(&accounts[i]))
	}
	return out
}

// TransactionResponse is the response body for one transaction.
type TransactionResponse struct {
	ID                    int64           `json:"id"`
	ReferenceID           string          `json:"reference_id"`
	Type                  string          `json:"type"`
	Status                string          `json:"status"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	SourceAccountID       int64           `json:"source_account_id"`
	DestinationAccountID  *int64          `json:"destination_account_id,omitempty"`
	ReversesTransactionID *int64          `json:"reverses_transaction_id,omitempty"`
	ErrorMessage          string          `json:"error_message,omitempty"`
	CreatedAt             string          `json:"created_at"`
	ProcessedAt           *string         `json:"processed_at,omitempty"`
}

// NewTransactionResponse maps a domain transaction.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                    t.ID,
		ReferenceID:           t.ReferenceID.String(),
		Type:                  string(t.Type),
		Status:                string(t.Status),
		Amount:                t.Amount,
		Currency:              t.Currency,
		SourceAccountID:       t.SourceAccountID,
		DestinationAccountID:  t.DestinationAccountID,
		ReversesTransactionID: t.ReversesID,
		ErrorMessage:          t.ErrorMessage,
		CreatedAt:             t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.ProcessedAt != nil {
		s := t.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}

// NewTransactionListResponse maps a slice of domain transactions.
func NewTransactionListResponse(txs []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, NewTransactionResponse(&txs[i]))
	}
	return out
}
