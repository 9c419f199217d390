package rabbitmq

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Replayer moves dead-lettered messages of one shard back onto the main
// exchange with the attempt counter reset.
type Replayer struct {
	channels  ChannelProvider
	publisher *Publisher
	topology  Topology
	log       zerolog.Logger
}

// NewReplayer creates a Replayer.
func NewReplayer(channels ChannelProvider, publisher *Publisher, topology Topology, log zerolog.Logger) *Replayer {
	return &Replayer{channels: channels, publisher: publisher, topology: topology, log: log}
}

// Replay moves up to limit messages from the shard's DLQ; limit <= 0 drains
// the queue. A message is acked only after its republish is confirmed.
// It returns the number of messages moved.
func (r *Replayer) Replay(ctx context.Context, shard int, limit int) (int, error) {
	if !r.topology.ValidShard(shard) {
		return 0, fmt.Errorf("shard %d out of range [0,%d)", shard, r.topology.ShardCount)
	}
	queue := r.topology.DeadLetterQueue(shard)

	ch, err := r.channels.Channel()
	if err != nil {
		return 0, err
	}
	defer ch.Close() //nolint:errcheck

	moved := 0
	for limit <= 0 || moved < limit {
		if err := ctx.Err(); err != nil {
			return moved, err
		}

		d, ok, err := ch.Get(queue, false)
		if err != nil {
			return moved, fmt.Errorf("reading %s: %w", queue, err)
		}
		if !ok {
			break
		}

		if err := r.publisher.Publish(ctx, r.topology.Exchange, r.topology.RoutingKey(shard), republishing(d, 0)); err != nil {
			if nackErr := d.Nack(false, true); nackErr != nil {
				r.log.Error().Err(nackErr).
					Int("shard", shard).
					Str("message_id", d.MessageId).
					Msg("Failed to requeue dead letter after replay failure")
			}
			return moved, fmt.Errorf("replaying %s: %w", d.MessageId, err)
		}
		if err := d.Ack(false); err != nil {
			return moved, fmt.Errorf("acking %s: %w", d.MessageId, err)
		}
		moved++

		r.log.Info().Int("shard", shard).Str("message_id", d.MessageId).Msg("Dead letter replayed")
	}
	return moved, nil
}
