package rabbitmq

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type declaredQueue struct {
	name string
	args amqp.Table
}

type binding struct {
	queue, key, exchange string
}

type published struct {
	exchange  string
	key       string
	mandatory bool
	msg       amqp.Publishing
}

// fakeBroker is an in-memory ChannelProvider recording everything sent to it.
type fakeBroker struct {
	mu sync.Mutex

	exchanges []string
	queues    []declaredQueue
	bindings  []binding
	published []published

	openErr      error
	declareErr   error
	publishErr   error
	nack         bool
	unroutable   bool
	withholdAck  bool
	confirmCalls int
	qos          int

	deliveries map[string]chan amqp.Delivery
	stored     map[string][]amqp.Delivery

	opened, closed int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		deliveries: map[string]chan amqp.Delivery{},
		stored:     map[string][]amqp.Delivery{},
	}
}

func (b *fakeBroker) Channel() (Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened++
	return &fakeChannel{b: b}, nil
}

func (b *fakeBroker) queue(name string) chan amqp.Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.deliveries[name]
	if !ok {
		q = make(chan amqp.Delivery, 16)
		b.deliveries[name] = q
	}
	return q
}

func (b *fakeBroker) publishes() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.published...)
}

type fakeChannel struct {
	b        *fakeBroker
	confirm  bool
	confirms chan amqp.Confirmation
	returns  chan amqp.Return
	tag      uint64
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.declareErr != nil {
		return c.b.declareErr
	}
	c.b.exchanges = append(c.b.exchanges, name+":"+kind)
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.queues = append(c.b.queues, declaredQueue{name: name, args: args})
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.bindings = append(c.b.bindings, binding{queue: name, key: key, exchange: exchange})
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.qos = prefetchCount
	return nil
}

func (c *fakeChannel) Confirm(noWait bool) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.confirmCalls++
	c.confirm = true
	return nil
}

func (c *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	c.confirms = confirm
	return confirm
}

func (c *fakeChannel) NotifyReturn(r chan amqp.Return) chan amqp.Return {
	c.returns = r
	return r
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, _ bool, msg amqp.Publishing) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.publishErr != nil {
		return c.b.publishErr
	}
	c.b.published = append(c.b.published, published{exchange: exchange, key: key, mandatory: mandatory, msg: msg})

	if !c.confirm || c.b.withholdAck {
		return nil
	}
	if c.b.unroutable && c.returns != nil {
		c.returns <- amqp.Return{ReplyCode: 312, ReplyText: "NO_ROUTE", Exchange: exchange, RoutingKey: key}
	}
	c.tag++
	c.confirms <- amqp.Confirmation{DeliveryTag: c.tag, Ack: !c.b.nack}
	return nil
}

func (c *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return c.b.queue(queue), nil
}

func (c *fakeChannel) Get(queue string, _ bool) (amqp.Delivery, bool, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	msgs := c.b.stored[queue]
	if len(msgs) == 0 {
		return amqp.Delivery{}, false, nil
	}
	c.b.stored[queue] = msgs[1:]
	return msgs[0], true, nil
}

func (c *fakeChannel) Close() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.closed++
	return nil
}

// fakeAcker records acknowledgements by delivery tag.
type fakeAcker struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
	nackErr error
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return a.nackErr
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) ackCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked)
}

func testTopology(shards int) Topology {
	return Topology{
		Exchange:       "transactions.exchange",
		RoutingKeyBase: "transactions",
		QueueBase:      "transactions",
		ShardCount:     shards,
		RetryTTL:       15 * time.Second,
	}
}

func testPublisher(b *fakeBroker, topo Topology) *Publisher {
	return NewPublisher(b, topo, PublishOptions{Confirms: true, ConfirmTimeout: time.Second}, nopLogger())
}
