package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"async-ledger/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionManager_DialFailure(t *testing.T) {
	m := NewConnectionManager(config.RabbitMQConfig{
		Host: "mq", Port: 5672, User: "guest", Password: "guest", VHost: "/",
	}, nopLogger())

	var dialedURL string
	m.dial = func(url string, _ amqp.Config) (*amqp.Connection, error) {
		dialedURL = url
		return nil, errors.New("connection refused")
	}

	err := m.Open()
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", dialedURL)

	ch, err := m.Channel()
	assert.Nil(t, ch)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectionManager_CloseWithoutOpen(t *testing.T) {
	m := NewConnectionManager(config.RabbitMQConfig{Host: "mq", Port: 5672}, nopLogger())
	assert.NoError(t, m.Close())
}

func TestHealthCheck(t *testing.T) {
	b := newFakeBroker()
	hc := NewHealthCheck(b)

	assert.Equal(t, "rabbitmq", hc.Name())
	require.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, 1, b.closed)

	b.openErr = ErrNotConnected
	assert.ErrorIs(t, hc.Ping(context.Background()), ErrNotConnected)
}
