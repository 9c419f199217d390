package rabbitmq

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"async-ledger/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned when no broker connection could be established.
var ErrNotConnected = errors.New("rabbitmq: not connected")

type dialFunc func(url string, cfg amqp.Config) (*amqp.Connection, error)

// ConnectionManager owns the AMQP connection and redials lazily when the
// broker dropped it.
type ConnectionManager struct {
	url  string
	cfg  amqp.Config
	dial dialFunc
	log  zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewConnectionManager creates a manager for the configured broker. It does not dial.
func NewConnectionManager(cfg config.RabbitMQConfig, log zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		url: cfg.URL(),
		cfg: amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Properties: amqp.Table{
				"connection_name": "async-ledger",
			},
		},
		dial: amqp.DialConfig,
		log:  log,
	}
}

// Open establishes the connection.
func (m *ConnectionManager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked()
}

func (m *ConnectionManager) connectLocked() error {
	if m.conn != nil && !m.conn.IsClosed() {
		return nil
	}
	conn, err := m.dial(m.url, m.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	m.conn = conn
	m.log.Info().Msg("RabbitMQ connection established")
	return nil
}

// Channel implements ChannelProvider.
func (m *ConnectionManager) Channel() (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.connectLocked(); err != nil {
		return nil, err
	}
	ch, err := m.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	return ch, nil
}

// Close closes the connection if open.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || m.conn.IsClosed() {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}
