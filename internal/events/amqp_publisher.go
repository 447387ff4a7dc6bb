package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RoutingKeyPrefix prefixes every routing key published to the exchange.
const RoutingKeyPrefix = "crm."

// AMQPChannel is the subset of *amqp.Channel used for publishing.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher forwards domain events to a topic exchange.
type AMQPPublisher struct {
	ch       AMQPChannel
	exchange string
	logger   *zap.Logger
}

type amqpMessage struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	RecordType string      `json:"record_type"`
	RecordID   int64       `json:"record_id"`
	ActorID    *int64      `json:"actor_id,omitempty"`
	Timestamp  string      `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// NewAMQPPublisher declares the exchange and returns a publisher bound to it.
func NewAMQPPublisher(ch AMQPChannel, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, logger: logger}, nil
}

// Forward publishes a single event as a persistent JSON message.
func (p *AMQPPublisher) Forward(ctx context.Context, event Event) error {
	body, err := json.Marshal(amqpMessage{
		ID:         event.ID,
		Type:       event.Type,
		RecordType: string(event.Record.Kind),
		RecordID:   event.Record.ID,
		ActorID:    event.ActorID,
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		Payload:    event.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		RoutingKeyPrefix+string(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	p.logger.Debug("event forwarded", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
	return nil
}

// SubscribeAll registers the publisher for every event type.
func (p *AMQPPublisher) SubscribeAll(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, p.Forward)
	}
}
