package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"async-ledger/config"
	"async-ledger/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var (
	ErrPublishNacked      = errors.New("rabbitmq: publish nacked by broker")
	ErrPublishUnroutable  = errors.New("rabbitmq: message returned as unroutable")
	ErrPublishTimeout     = errors.New("rabbitmq: publish not confirmed within timeout")
	ErrConfirmChannelGone = errors.New("rabbitmq: channel closed before confirm")
)

// PublishOptions tunes confirmed publishing.
type PublishOptions struct {
	Confirms       bool
	ConfirmTimeout time.Duration
}

// Publisher publishes on a fresh channel per message and, with confirms
// enabled, returns only once the broker acked it. It implements
// ports.SettlementPublisher.
type Publisher struct {
	channels ChannelProvider
	topology Topology
	opts     PublishOptions
	log      zerolog.Logger
}

// NewPublisher creates a Publisher for the given topology.
func NewPublisher(channels ChannelProvider, topology Topology, opts PublishOptions, log zerolog.Logger) *Publisher {
	return &Publisher{channels: channels, topology: topology, opts: opts, log: log}
}

// PublishOptionsFromConfig maps broker config onto PublishOptions.
func PublishOptionsFromConfig(cfg config.RabbitMQConfig) PublishOptions {
	return PublishOptions{Confirms: cfg.PublisherConfirms, ConfirmTimeout: cfg.PublishConfirmTimeout}
}

// PublishTransactionCreated wraps evt in an envelope and routes it to shard.
func (p *Publisher) PublishTransactionCreated(ctx context.Context, evt domain.TransactionCreatedEvent, shard int, correlationID string) error {
	if !p.topology.ValidShard(shard) {
		return fmt.Errorf("shard %d out of range [0,%d)", shard, p.topology.ShardCount)
	}

	env := NewEnvelope(evt, correlationID)
	env.Headers = map[string]string{
		HeaderMessageType:   domain.MessageTypeTransactionCreated,
		HeaderCorrelationID: env.CorrelationID,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	msg := amqp.Publishing{
		Headers: amqp.Table{
			HeaderMessageType:   domain.MessageTypeTransactionCreated,
			HeaderCorrelationID: env.CorrelationID,
			HeaderAttempts:      int64(0),
		},
		ContentType:   ContentTypeJSON,
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.MessageID,
		CorrelationId: env.CorrelationID,
		Timestamp:     env.CreatedAt,
		Type:          domain.MessageTypeTransactionCreated,
		Body:          body,
	}

	if err := p.Publish(ctx, p.topology.Exchange, p.topology.RoutingKey(shard), msg); err != nil {
		return err
	}

	p.log.Debug().
		Int64("tx_id", evt.TransactionID).
		Int("shard", shard).
		Str("message_id", env.MessageID).
		Str("correlation_id", env.CorrelationID).
		Msg("Settlement event published")
	return nil
}

// Publish sends msg as mandatory and waits for the broker's confirm.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	ch, err := p.channels.Channel()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	if !p.opts.Confirms {
		if err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, msg); err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}
		return nil
	}

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enabling confirms: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))

	ctx, cancel := context.WithTimeout(ctx, p.opts.ConfirmTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, msg); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return ErrConfirmChannelGone
		}
		if !c.Ack {
			return ErrPublishNacked
		}
		// basic.return precedes basic.ack for the same message.
		select {
		case r := <-returns:
			return fmt.Errorf("%w: %s (%d)", ErrPublishUnroutable, r.ReplyText, r.ReplyCode)
		default:
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPublishTimeout, ctx.Err())
	}
}
