package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher отправляет события запусков в обменник stagehand.runs.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish сериализует msg и публикует его как persistent-сообщение.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		AppId:        "stagehand",
		Timestamp:    msg.Timestamp,
		Body:         body,
	}

	err = p.conn.WithChannel(func(ch *amqp.Channel) error {
		return ch.PublishWithContext(ctx, string(exchange), string(key), false, false, publishing)
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.Type, exchange, err)
	}

	p.logger.Debug("published message", "exchange", exchange, "routing_key", key, "message_id", msg.ID)
	return nil
}

// PublishRunStarted публикует run.started.
func (p *Publisher) PublishRunStarted(ctx context.Context, payload RunStartedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyStarted, NewMessage(MessageTypeRunStarted, payload))
}

// PublishRunFinished публикует run.finished.
func (p *Publisher) PublishRunFinished(ctx context.Context, payload RunFinishedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyFinished, NewMessage(MessageTypeRunFinished, payload))
}

// RequestRuns публикует run.requested: так внешние системы (CI)
// ставят features в очередь без HTTP.
func (p *Publisher) RequestRuns(ctx context.Context, payload RunRequestedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, NewMessage(MessageTypeRunRequested, payload))
}
