package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes meter events to a topic exchange for the out-of-process
// notification scheduler. A nil *Publisher is a valid no-op, used when
// RABBITMQ_URL is not configured.
type Publisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// ReadingAcceptedEvent is published after a reading is persisted.
type ReadingAcceptedEvent struct {
	UserID    string  `json:"user_id"`
	ReadingID string  `json:"reading_id"`
	Value     float64 `json:"value"`
	LocalDate string  `json:"local_date"`
	Period    string  `json:"period"`
	Kind      string  `json:"kind"`
	Timestamp string  `json:"timestamp"`
}

// AnomalyEvent is published when the reconciled data looks wrong: an
// unexplained reading increase or a daily usage spike.
type AnomalyEvent struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// PublishReadingAccepted publishes a reading-accepted event.
func (p *Publisher) PublishReadingAccepted(ctx context.Context, event ReadingAcceptedEvent, routingKey string) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, routingKey, event,
		zap.String("user_id", event.UserID),
		zap.String("reading_id", event.ReadingID),
	)
}

// PublishAnomaly publishes an anomaly-detected event.
func (p *Publisher) PublishAnomaly(ctx context.Context, event AnomalyEvent, routingKey string) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, routingKey, event,
		zap.String("user_id", event.UserID),
		zap.String("date", event.Date),
	)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, event interface{}, fields ...zap.Field) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event", append(fields, zap.String("routing_key", routingKey))...)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p == nil || p.channel == nil {
		return nil
	}
	return p.channel.Close()
}
