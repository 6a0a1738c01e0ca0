package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type (
	Exchange   string
	Queue      string
	RoutingKey string
)

const (
	ExchangeRuns Exchange = "stagehand.runs" // topic
	ExchangeDLQ  Exchange = "stagehand.dlq"  // direct

	QueueRunsRequested Queue = "runs.requested"
	QueueDLQRuns       Queue = "dlq.runs"

	RoutingKeyRequested RoutingKey = "run.requested"
	RoutingKeyStarted   RoutingKey = "run.started"
	RoutingKeyFinished  RoutingKey = "run.finished"
	RoutingKeyDLQRuns   RoutingKey = "runs"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name     Queue
	exchange Exchange
	key      RoutingKey
	args     amqp.Table
}

// События run.started и run.finished не привязаны ни к одной очереди:
// подписчики создают свои очереди на stagehand.runs.
var (
	exchanges = []exchangeDecl{
		{ExchangeRuns, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues = []queueDecl{
		{QueueRunsRequested, ExchangeRuns, RoutingKeyRequested, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
		}},
		{QueueDLQRuns, ExchangeDLQ, RoutingKeyDLQRuns, nil},
	}
)

// SetupTopology объявляет обменники и очереди. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return conn.WithChannel(func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			// durable, без auto-delete
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
			if err := ch.QueueBind(string(q.name), string(q.key), string(q.exchange), false, nil); err != nil {
				return fmt.Errorf("bind %s to %s: %w", q.name, q.exchange, err)
			}
		}
		return nil
	})
}
