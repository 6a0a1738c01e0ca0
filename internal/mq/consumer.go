package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
)

// maxLoggedBody — сколько байт тела нераспознанного сообщения попадает в лог.
const maxLoggedBody = 512

// Handler обрабатывает доставку. Ошибка означает «повторить позже».
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — разобранное сообщение.
type Delivery struct {
	Message Message

	// Redelivered — брокер уже отдавал это сообщение.
	Redelivered bool
}

// Consumer читает очередь и передаёт сообщения Handler.
//
// Исход обработки:
//   - тело не разбирается как Message: nack в DLQ
//   - Handler вернул nil: ack
//   - Handler вернул ошибку: nack с возвратом в очередь; при повторной
//     неудаче уже доставленного сообщения nack в DLQ
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	tag      string
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue    string
	Handler  Handler
	Prefetch int // default: 1, заявки ставятся в очередь по одной
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		tag:      fmt.Sprintf("stagehand-%s-%d", cfg.Queue, os.Getpid()),
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start читает очередь до отмены ctx и переподписывается после
// восстановления соединения. Всегда возвращает ctx.Err().
func (c *Consumer) Start(ctx context.Context) error {
	for {
		reconnected := c.conn.Reconnected()

		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started", "tag", c.tag)
			if c.drain(ctx, deliveries) {
				return ctx.Err()
			}
			c.logger.Warn("delivery channel closed, waiting for reconnect")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnected:
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery
	err := c.conn.WithChannel(func(ch *amqp.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		var err error
		deliveries, err = ch.Consume(c.queue, c.tag,
			false, // ack вручную
			false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.queue, err)
		}
		return nil
	})
	return deliveries, err
}

// drain обрабатывает доставки, пока канал открыт.
// Возвращает true, если выход из-за отмены ctx.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			// Неподтверждённые сообщения вернутся в очередь
			c.conn.WithChannel(func(ch *amqp.Channel) error {
				return ch.Cancel(c.tag, false)
			})
			return true

		case raw, ok := <-deliveries:
			if !ok {
				return false
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		body := raw.Body
		if len(body) > maxLoggedBody {
			body = body[:maxLoggedBody]
		}
		c.logger.Error("undecodable message, dead-lettering", "error", err, "body", string(body))
		raw.Nack(false, false)
		return
	}

	c.logger.Debug("received message", "message_id", msg.ID, "type", msg.Type, "redelivered", raw.Redelivered)

	err := c.handler(ctx, &Delivery{Message: msg, Redelivered: raw.Redelivered})
	if err == nil {
		raw.Ack(false)
		return
	}

	requeue := !raw.Redelivered
	c.logger.Error("message not handled",
		"message_id", msg.ID,
		"type", msg.Type,
		"requeue", requeue,
		"error", err,
	)
	raw.Nack(false, requeue)
}

// ParsePayload декодирует Message.Payload в T.
// После json.Unmarshal в Message payload лежит как map[string]any.
func ParsePayload[T any](msg *Message) (T, error) {
	var out T

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return out, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return out, nil
}
