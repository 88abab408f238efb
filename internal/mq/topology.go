package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeRuns Exchange = "textflow.runs"
	ExchangeDLQ  Exchange = "textflow.dlq"
)

// Queues.
const (
	QueueRunsCompleted Queue = "runs.completed"
	QueueJobsFailed    Queue = "jobs.failed"
	QueueDLQEvents     Queue = "dlq.events"
)

// Routing keys.
const (
	RoutingKeyRunCompleted RoutingKey = "run.completed"
	RoutingKeyJobFailed    RoutingKey = "job.failed"
	RoutingKeyDLQEvents    RoutingKey = "events"
)

// binding — привязка очереди к обменнику.
type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// bindings — все привязки топологии.
var bindings = []binding{
	{QueueRunsCompleted, RoutingKeyRunCompleted, ExchangeRuns},
	{QueueJobsFailed, "job.*", ExchangeRuns},
	{QueueDLQEvents, RoutingKeyDLQEvents, ExchangeDLQ},
}

// SetupTopology объявляет обменники, очереди и привязки. Операция
// идемпотентна: повторный вызов с той же топологией ничего не меняет.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Обменники
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Очереди
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязки
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeRuns, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// queueArgs возвращает аргументы очереди. Очереди событий уходят в DLQ,
// если потребитель отклонил сообщение без requeue.
func queueArgs(q Queue) amqp.Table {
	if q == QueueDLQEvents {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQEvents),
	}
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	for _, q := range []Queue{QueueRunsCompleted, QueueJobsFailed, QueueDLQEvents} {
		_, err := ch.QueueDeclare(
			string(q),    // name
			true,         // durable
			false,        // delete when unused
			false,        // exclusive
			false,        // no-wait
			queueArgs(q), // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Textflow RabbitMQ Topology:

    textflow.runs (topic)
    ├── runs.completed [routing: run.completed]
    │       DLQ: dlq.events
    └── jobs.failed [routing: job.*]
            DLQ: dlq.events

    textflow.dlq (direct)
    └── dlq.events [routing: events]
            Manual processing
  `
}
