package rabbitmq

import (
	"fmt"
	"time"

	"async-ledger/config"
	"async-ledger/pkg/shard"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	argSingleActiveConsumer = "x-single-active-consumer"
	argMessageTTL           = "x-message-ttl"
	argDeadLetterExchange   = "x-dead-letter-exchange"
	argDeadLetterRoutingKey = "x-dead-letter-routing-key"
)

// Topology names every exchange and queue of the sharded settlement pipeline.
//
// Per shard i there is a main queue bound to Exchange, a retry queue bound to
// the retry exchange whose messages dead-letter back to the main queue after
// RetryTTL, and a dead-letter queue bound to the dead-letter exchange. All
// three use the same routing key and are single-active-consumer.
type Topology struct {
	Exchange       string
	RoutingKeyBase string
	QueueBase      string
	ShardCount     int
	RetryTTL       time.Duration
}

// NewTopology builds the topology described by cfg.
func NewTopology(cfg config.RabbitMQConfig) Topology {
	return Topology{
		Exchange:       cfg.Exchange,
		RoutingKeyBase: cfg.RoutingKeyBase,
		QueueBase:      cfg.QueueBase,
		ShardCount:     cfg.ShardCount,
		RetryTTL:       cfg.RetryTTL,
	}
}

func (t Topology) RetryExchange() string        { return shard.RetryExchange(t.Exchange) }
func (t Topology) DeadLetterExchange() string   { return shard.DeadLetterExchange(t.Exchange) }
func (t Topology) RoutingKey(i int) string      { return shard.RoutingKey(t.RoutingKeyBase, i) }
func (t Topology) Queue(i int) string           { return shard.Queue(t.QueueBase, i) }
func (t Topology) RetryQueue(i int) string      { return shard.RetryQueue(t.QueueBase, i) }
func (t Topology) DeadLetterQueue(i int) string { return shard.DeadLetterQueue(t.QueueBase, i) }

// ValidShard reports whether i names a shard of this topology.
func (t Topology) ValidShard(i int) bool {
	return i >= 0 && i < t.ShardCount
}

// Declare idempotently declares exchanges, queues and bindings.
func (t Topology) Declare(ch Channel) error {
	if t.ShardCount < 1 {
		return fmt.Errorf("shard count must be positive, got %d", t.ShardCount)
	}

	for _, ex := range []string{t.Exchange, t.RetryExchange(), t.DeadLetterExchange()} {
		if err := ch.ExchangeDeclare(ex, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declaring exchange %s: %w", ex, err)
		}
	}

	for i := 0; i < t.ShardCount; i++ {
		rk := t.RoutingKey(i)

		queues := []struct {
			name     string
			exchange string
			args     amqp.Table
		}{
			{t.Queue(i), t.Exchange, amqp.Table{
				argSingleActiveConsumer: true,
			}},
			{t.RetryQueue(i), t.RetryExchange(), amqp.Table{
				argMessageTTL:           t.RetryTTL.Milliseconds(),
				argDeadLetterExchange:   t.Exchange,
				argDeadLetterRoutingKey: rk,
				argSingleActiveConsumer: true,
			}},
			{t.DeadLetterQueue(i), t.DeadLetterExchange(), amqp.Table{
				argSingleActiveConsumer: true,
			}},
		}

		for _, q := range queues {
			if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declaring queue %s: %w", q.name, err)
			}
			if err := ch.QueueBind(q.name, rk, q.exchange, false, nil); err != nil {
				return fmt.Errorf("binding queue %s: %w", q.name, err)
			}
		}
	}
	return nil
}

// DeclareTopology opens a channel from channels and declares t on it.
func DeclareTopology(channels ChannelProvider, t Topology) error {
	ch, err := channels.Channel()
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck
	return t.Declare(ch)
}
