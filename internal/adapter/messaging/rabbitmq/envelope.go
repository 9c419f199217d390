package rabbitmq

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"async-ledger/internal/core/ports"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Transport header names.
const (
	HeaderAttempts      = "x-attempts"
	HeaderMessageType   = "x-message-type"
	HeaderCorrelationID = "x-correlation-id"

	ContentTypeJSON = "application/json"
)

// Envelope wraps an event with its message identity.
type Envelope[T any] struct {
	Data          T                 `json:"data"`
	MessageID     string            `json:"message_id"`
	CorrelationID string            `json:"correlation_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// NewEnvelope assigns a fresh message id. An empty correlationID falls back to it.
func NewEnvelope[T any](data T, correlationID string) Envelope[T] {
	id := uuid.NewString()
	if correlationID == "" {
		correlationID = id
	}
	return Envelope[T]{
		Data:          data,
		MessageID:     id,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// DecodeEnvelope parses a delivery body.
func DecodeEnvelope[T any](body []byte) (Envelope[T], error) {
	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}

// Attempts reads the attempt counter. Missing or unreadable values count as zero.
func Attempts(h amqp.Table) uint {
	v, ok := h[HeaderAttempts]
	if !ok || v == nil {
		return 0
	}

	var n int64
	switch t := v.(type) {
	case int32:
		n = int64(t)
	case int64:
		n = t
	case int:
		n = int64(t)
	case int16:
		n = int64(t)
	case uint8:
		n = int64(t)
	case string:
		n, _ = strconv.ParseInt(t, 10, 64)
	case []byte:
		n, _ = strconv.ParseInt(string(t), 10, 64)
	}
	if n < 0 {
		return 0
	}
	return uint(n)
}

// Metadata is the typed view of a delivery's transport properties.
func Metadata(d amqp.Delivery, shard int) ports.DeliveryMetadata {
	corr := d.CorrelationId
	if corr == "" {
		if s, ok := d.Headers[HeaderCorrelationID].(string); ok {
			corr = s
		}
	}
	return ports.DeliveryMetadata{
		Attempts:          Attempts(d.Headers),
		OriginalMessageID: d.MessageId,
		CorrelationID:     corr,
		Shard:             shard,
	}
}

// republishing copies a delivery into a new persistent message carrying the given attempt count.
func republishing(d amqp.Delivery, attempts uint) amqp.Publishing {
	headers := make(amqp.Table, len(d.Headers)+1)
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[HeaderAttempts] = int64(attempts)

	contentType := d.ContentType
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	messageID := d.MessageId
	if messageID == "" {
		messageID = uuid.NewString()
	}
	correlationID := d.CorrelationId
	if correlationID == "" {
		correlationID = messageID
	}

	return amqp.Publishing{
		Headers:       headers,
		ContentType:   contentType,
		DeliveryMode:  amqp.Persistent,
		MessageId:     messageID,
		CorrelationId: correlationID,
		Timestamp:     d.Timestamp,
		Type:          d.Type,
		Body:          d.Body,
	}
}
