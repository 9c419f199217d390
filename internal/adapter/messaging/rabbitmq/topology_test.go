package rabbitmq

import (
	"errors"
	"testing"
	"time"

	"async-ledger/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func TestTopology_Names(t *testing.T) {
	topo := testTopology(4)

	assert.Equal(t, "transactions.exchange.retry", topo.RetryExchange())
	assert.Equal(t, "transactions.exchange.dlx", topo.DeadLetterExchange())
	assert.Equal(t, "transactions.shard-3", topo.RoutingKey(3))
	assert.Equal(t, "transactions.shard-3.queue", topo.Queue(3))
	assert.Equal(t, "transactions.shard-3.queue.retry", topo.RetryQueue(3))
	assert.Equal(t, "transactions.shard-3.queue.dlq", topo.DeadLetterQueue(3))

	assert.True(t, topo.ValidShard(0))
	assert.True(t, topo.ValidShard(3))
	assert.False(t, topo.ValidShard(4))
	assert.False(t, topo.ValidShard(-1))
}

func TestNewTopology_FromConfig(t *testing.T) {
	topo := NewTopology(config.RabbitMQConfig{
		Exchange:       "ex",
		RoutingKeyBase: "rk",
		QueueBase:      "q",
		ShardCount:     8,
		RetryTTL:       2 * time.Second,
	})

	assert.Equal(t, "ex", topo.Exchange)
	assert.Equal(t, 8, topo.ShardCount)
	assert.Equal(t, "rk.shard-1", topo.RoutingKey(1))
	assert.Equal(t, "q.shard-1.queue", topo.Queue(1))
}

func TestTopology_Declare(t *testing.T) {
	b := newFakeBroker()
	topo := testTopology(2)

	require.NoError(t, DeclareTopology(b, topo))

	assert.Equal(t, []string{
		"transactions.exchange:direct",
		"transactions.exchange.retry:direct",
		"transactions.exchange.dlx:direct",
	}, b.exchanges)

	require.Len(t, b.queues, 6)
	byName := map[string]amqp.Table{}
	for _, q := range b.queues {
		byName[q.name] = q.args
	}

	main := byName["transactions.shard-1.queue"]
	assert.Equal(t, true, main["x-single-active-consumer"])

	retry := byName["transactions.shard-1.queue.retry"]
	assert.Equal(t, int64(15000), retry["x-message-ttl"])
	assert.Equal(t, "transactions.exchange", retry["x-dead-letter-exchange"])
	assert.Equal(t, "transactions.shard-1", retry["x-dead-letter-routing-key"])
	assert.Equal(t, true, retry["x-single-active-consumer"])

	dlq := byName["transactions.shard-1.queue.dlq"]
	assert.Equal(t, true, dlq["x-single-active-consumer"])

	assert.Contains(t, b.bindings, binding{queue: "transactions.shard-0.queue", key: "transactions.shard-0", exchange: "transactions.exchange"})
	assert.Contains(t, b.bindings, binding{queue: "transactions.shard-0.queue.retry", key: "transactions.shard-0", exchange: "transactions.exchange.retry"})
	assert.Contains(t, b.bindings, binding{queue: "transactions.shard-1.queue.dlq", key: "transactions.shard-1", exchange: "transactions.exchange.dlx"})
	assert.Len(t, b.bindings, 6)

	assert.Equal(t, 1, b.opened)
	assert.Equal(t, 1, b.closed)
}

func TestTopology_DeclareIsRepeatable(t *testing.T) {
	b := newFakeBroker()
	topo := testTopology(1)

	require.NoError(t, DeclareTopology(b, topo))
	require.NoError(t, DeclareTopology(b, topo))
	assert.Len(t, b.queues, 6)
}

func TestTopology_DeclareErrors(t *testing.T) {
	t.Run("exchange declare fails", func(t *testing.T) {
		b := newFakeBroker()
		b.declareErr = errors.New("access refused")

		err := DeclareTopology(b, testTopology(1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transactions.exchange")
	})

	t.Run("no channel", func(t *testing.T) {
		b := newFakeBroker()
		b.openErr = ErrNotConnected

		assert.ErrorIs(t, DeclareTopology(b, testTopology(1)), ErrNotConnected)
	})

	t.Run("zero shards", func(t *testing.T) {
		b := newFakeBroker()
		assert.Error(t, DeclareTopology(b, testTopology(0)))
	})
}
