package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"async-ledger/internal/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc processes one decoded envelope. A non-nil error counts as a failed attempt.
type HandlerFunc[T any] func(ctx context.Context, env Envelope[T], meta ports.DeliveryMetadata) error

// ConsumerOptions configures a ShardedConsumer.
type ConsumerOptions struct {
	Name              string
	PrefetchCount     int
	MaxAttempts       uint
	ReconnectInterval time.Duration
}

var errDeliveriesClosed = errors.New("delivery channel closed")

// ShardedConsumer subscribes to every shard's main queue with manual acks.
//
// A delivery whose handler fails is republished with its attempt counter
// incremented: to the retry exchange while attempts < MaxAttempts, otherwise
// to the dead-letter exchange. The original is acked once the republish is
// confirmed. If the republish itself fails the original is nacked with
// requeue so it is never lost.
type ShardedConsumer[T any] struct {
	channels  ChannelProvider
	publisher *Publisher
	topology  Topology
	handler   HandlerFunc[T]
	opts      ConsumerOptions
	log       zerolog.Logger
}

// NewShardedConsumer creates a consumer for all shards of topology.
func NewShardedConsumer[T any](
	channels ChannelProvider,
	publisher *Publisher,
	topology Topology,
	handler HandlerFunc[T],
	opts ConsumerOptions,
	log zerolog.Logger,
) *ShardedConsumer[T] {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.PrefetchCount < 1 {
		opts.PrefetchCount = 1
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 5 * time.Second
	}
	if opts.Name == "" {
		opts.Name = "settlement"
	}
	return &ShardedConsumer[T]{
		channels:  channels,
		publisher: publisher,
		topology:  topology,
		handler:   handler,
		opts:      opts,
		log:       log.With().Str("consumer", opts.Name).Logger(),
	}
}

// Run consumes until ctx is cancelled. Deliveries already being handled
// finish before Run returns.
func (c *ShardedConsumer[T]) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.topology.ShardCount; i++ {
		shard := i
		g.Go(func() error {
			c.runShard(gctx, shard)
			return nil
		})
	}
	return g.Wait()
}

func (c *ShardedConsumer[T]) runShard(ctx context.Context, shard int) {
	queue := c.topology.Queue(shard)
	for {
		err := c.consume(ctx, shard)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Int("shard", shard).Str("queue", queue).
			Dur("retry_in", c.opts.ReconnectInterval).
			Msg("Shard subscription lost, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.opts.ReconnectInterval):
		}
	}
}

func (c *ShardedConsumer[T]) consume(ctx context.Context, shard int) error {
	queue := c.topology.Queue(shard)

	ch, err := c.channels.Channel()
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Qos(c.opts.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}
	tag := fmt.Sprintf("%s-shard-%d", c.opts.Name, shard)
	deliveries, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", queue, err)
	}

	c.log.Info().Int("shard", shard).Str("queue", queue).Msg("Consuming shard")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.process(ctx, shard, d)
		}
	}
}

// process settles one delivery and always leaves it acked or requeued.
func (c *ShardedConsumer[T]) process(ctx context.Context, shard int, d amqp.Delivery) {
	hctx := context.WithoutCancel(ctx)
	meta := Metadata(d, shard)
	log := c.log.With().
		Int("shard", shard).
		Str("message_id", d.MessageId).
		Str("correlation_id", meta.CorrelationID).
		Uint("attempts", meta.Attempts).
		Logger()

	err := c.handle(hctx, d, meta)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error().Err(ackErr).Msg("Ack failed")
			return
		}
		log.Info().Msg("Delivery acked")
		return
	}

	attempts := meta.Attempts + 1
	exchange, outcome := c.topology.RetryExchange(), "retry"
	if attempts >= c.opts.MaxAttempts {
		exchange, outcome = c.topology.DeadLetterExchange(), "dead-letter"
	}

	if pubErr := c.publisher.Publish(hctx, exchange, c.topology.RoutingKey(shard), republishing(d, attempts)); pubErr != nil {
		log.Error().Err(pubErr).AnErr("handler_error", err).Str("outcome", outcome).
			Msg("Republish failed, requeueing original")
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error().Err(nackErr).Msg("Nack failed")
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Msg("Ack failed after republish")
	}

	ev := log.Warn()
	if outcome == "dead-letter" {
		ev = log.Error()
	}
	ev.Err(err).Uint("next_attempt", attempts).Str("outcome", outcome).Msg("Delivery failed")
}

func (c *ShardedConsumer[T]) handle(ctx context.Context, d amqp.Delivery, meta ports.DeliveryMetadata) error {
	env, err := DecodeEnvelope[T](d.Body)
	if err != nil {
		return err
	}
	return c.handler(ctx, env, meta)
}
