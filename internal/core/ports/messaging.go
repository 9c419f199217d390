package ports

//go:generate mockgen -source=messaging.go -destination=mocks/mock_messaging.go -package=mocks

import (
	"context"

	"async-ledger/internal/core/domain"
)

// DeliveryMetadata is the typed view of the transport headers of one delivery.
type DeliveryMetadata struct {
	Attempts          uint
	OriginalMessageID string
	CorrelationID     string
	Shard             int
}

// SettlementPublisher hands settlement events to the broker.
// A nil error means the broker confirmed the message.
type SettlementPublisher interface {
	PublishTransactionCreated(ctx context.Context, evt domain.TransactionCreatedEvent, shard int, correlationID string) error
}

// SettlementHandler settles one delivered event. A returned error is transient
// and makes the consumer retry or dead-letter the message.
type SettlementHandler interface {
	Handle(ctx context.Context, evt domain.TransactionCreatedEvent, meta DeliveryMetadata) error
}
