package rabbitmq

import "context"

// HealthCheck implements ports.HealthChecker for RabbitMQ by opening and
// closing a channel.
type HealthCheck struct {
	channels ChannelProvider
}

// NewHealthCheck creates a RabbitMQ health checker.
func NewHealthCheck(channels ChannelProvider) *HealthCheck {
	return &HealthCheck{channels: channels}
}

// Ping checks broker connectivity.
func (h *HealthCheck) Ping(_ context.Context) error {
	ch, err := h.channels.Channel()
	if err != nil {
		return err
	}
	return ch.Close()
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "rabbitmq"
}
