package domain

// MessageTypeTransactionCreated names the settlement event on the wire.
const MessageTypeTransactionCreated = "transaction.created"

// TransactionCreatedEvent asks a worker to settle a pending transaction.
type TransactionCreatedEvent struct {
	TransactionID int64 `json:"transaction_id"`
}
