package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Textflow/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunCompleted MessageType = "run.completed"
	MessageTypeJobFailed    MessageType = "job.failed"
)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение со свежим ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// RunCompletedPayload — payload события о завершённом run.
type RunCompletedPayload struct {
	RunID       uuid.UUID        `json:"run_id"`
	Workflow    string           `json:"workflow"`
	Status      domain.RunStatus `json:"status"`
	FailedJobs  []string         `json:"failed_jobs,omitempty"`
	SkippedJobs []string         `json:"skipped_jobs,omitempty"`
}

// JobFailedPayload — payload события об упавшей задаче.
type JobFailedPayload struct {
	RunID    uuid.UUID `json:"run_id"`
	Workflow string    `json:"workflow"`
	JobID    string    `json:"job_id"`
	Error    string    `json:"error"`
}

// Publisher публикует события run в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// encode сериализует сообщение в AMQP publishing.
func encode(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	publishing, err := encode(msg)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			publishing,
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishRunCompleted публикует событие о завершённом run.
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRunCompleted, NewMessage(MessageTypeRunCompleted, payload))
}

// PublishJobFailed публикует событие об упавшей задаче.
func (p *Publisher) PublishJobFailed(ctx context.Context, payload JobFailedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyJobFailed, NewMessage(MessageTypeJobFailed, payload))
}
