package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrUnknownMessageType возвращается обработчиком событий для сообщения
// неизвестного типа.
var ErrUnknownMessageType = errors.New("unknown message type")

// Handler — функция обработки сообщения.
// Ошибка означает nack с возвратом в очередь.
type Handler func(ctx context.Context, msg *Message) error

// EventHandlers — обработчики событий по типам.
type EventHandlers struct {
	RunCompleted func(ctx context.Context, payload RunCompletedPayload) error
	JobFailed    func(ctx context.Context, payload JobFailedPayload) error
}

// Handler возвращает Handler, который разбирает payload по типу сообщения.
// Тип без обработчика подтверждается без обработки.
func (h EventHandlers) Handler() Handler {
	return func(ctx context.Context, msg *Message) error {
		switch msg.Type {
		case MessageTypeRunCompleted:
			if h.RunCompleted == nil {
				return nil
			}
			payload, err := ParsePayload[RunCompletedPayload](msg)
			if err != nil {
				return err
			}
			return h.RunCompleted(ctx, payload)

		case MessageTypeJobFailed:
			if h.JobFailed == nil {
				return nil
			}
			payload, err := ParsePayload[JobFailedPayload](msg)
			if err != nil {
				return err
			}
			return h.JobFailed(ctx, payload)

		default:
			return fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
		}
	}
}

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start потребляет сообщения до отмены ctx. После разрыва соединения
// потребление возобновляется по уведомлению о переподключении.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
		} else {
			c.logger.Info("consumer started", "queue", c.queue)
			c.processDeliveries(ctx, deliveries)
			if err := ctx.Err(); err != nil {
				return err
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", c.queue)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// setupConsume настраивает prefetch и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения, пока канал открыт.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение.
//
// Нечитаемое сообщение и сообщение неизвестного типа уходят в DLQ,
// ошибка обработчика возвращает сообщение в очередь.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "queue", c.queue, "error", err)
		c.nack(raw, false)
		return
	}

	c.logger.Debug("received message", "queue", c.queue, "message_id", msg.ID, "type", msg.Type)

	if err := c.handler(ctx, &msg); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		c.nack(raw, !errors.Is(err, ErrUnknownMessageType))
		return
	}

	if err := raw.Ack(false); err != nil {
		c.logger.Warn("ack failed", "queue", c.queue, "message_id", msg.ID, "error", err)
	}
}

// nack отклоняет сообщение.
func (c *Consumer) nack(raw amqp.Delivery, requeue bool) {
	if err := raw.Nack(false, requeue); err != nil {
		c.logger.Warn("nack failed", "queue", c.queue, "error", err)
	}
}

// ParsePayload разбирает payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После json.Unmarshal в Message payload — это map[string]any
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
