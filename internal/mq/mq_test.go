package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Textflow/internal/domain"
)

// fakeAcknowledger запоминает ack/nack.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func testConsumer(handler Handler) *Consumer {
	return NewConsumer(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), ConsumerConfig{
		Queue:   QueueRunsCompleted,
		Handler: handler,
	})
}

func delivery(t *testing.T, ack amqp.Acknowledger, msg *Message) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

// --- Publisher Tests ---

func TestEncode(t *testing.T) {
	runID := uuid.New()
	msg := NewMessage(MessageTypeRunCompleted, RunCompletedPayload{
		RunID:    runID,
		Workflow: "wf",
		Status:   domain.RunStatusPartial,
	})

	pub, err := encode(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pub.ContentType != "application/json" || pub.DeliveryMode != amqp.Persistent {
		t.Errorf("unexpected publishing headers: %s %d", pub.ContentType, pub.DeliveryMode)
	}
	if pub.MessageId != msg.ID || pub.Type != "run.completed" {
		t.Errorf("unexpected id/type: %s %s", pub.MessageId, pub.Type)
	}

	var decoded Message
	if err := json.Unmarshal(pub.Body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	payload, err := ParsePayload[RunCompletedPayload](&decoded)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.RunID != runID || payload.Status != domain.RunStatusPartial {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	a := NewMessage(MessageTypeJobFailed, nil)
	b := NewMessage(MessageTypeJobFailed, nil)
	if a.ID == b.ID {
		t.Error("message IDs must be unique")
	}
	if a.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}

// --- Consumer Tests ---

func TestEventHandlers(t *testing.T) {
	var got JobFailedPayload
	handler := EventHandlers{
		JobFailed: func(ctx context.Context, p JobFailedPayload) error {
			got = p
			return nil
		},
	}.Handler()

	msg := NewMessage(MessageTypeJobFailed, JobFailedPayload{JobID: "b", Error: "boom"})
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.JobID != "b" || got.Error != "boom" {
		t.Errorf("unexpected payload: %+v", got)
	}

	// Нет обработчика — сообщение подтверждается
	if err := handler(context.Background(), NewMessage(MessageTypeRunCompleted, nil)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := handler(context.Background(), NewMessage("other", nil))
	if !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("expected ErrUnknownMessageType, got %v", err)
	}
}

func TestHandleDelivery_Ack(t *testing.T) {
	ack := &fakeAcknowledger{}
	c := testConsumer(func(ctx context.Context, msg *Message) error { return nil })

	c.handleDelivery(context.Background(), delivery(t, ack, NewMessage(MessageTypeRunCompleted, nil)))

	if !ack.acked || ack.nacked {
		t.Errorf("expected ack, got %+v", ack)
	}
}

func TestHandleDelivery_HandlerErrorRequeues(t *testing.T) {
	ack := &fakeAcknowledger{}
	c := testConsumer(func(ctx context.Context, msg *Message) error { return errors.New("db down") })

	c.handleDelivery(context.Background(), delivery(t, ack, NewMessage(MessageTypeRunCompleted, nil)))

	if !ack.nacked || !ack.requeue {
		t.Errorf("expected nack with requeue, got %+v", ack)
	}
}

func TestHandleDelivery_UnknownTypeDeadLetters(t *testing.T) {
	ack := &fakeAcknowledger{}
	c := testConsumer(EventHandlers{}.Handler())

	c.handleDelivery(context.Background(), delivery(t, ack, NewMessage("unknown", nil)))

	if !ack.nacked || ack.requeue {
		t.Errorf("expected nack without requeue, got %+v", ack)
	}
}

func TestHandleDelivery_MalformedBody(t *testing.T) {
	ack := &fakeAcknowledger{}
	c := testConsumer(func(ctx context.Context, msg *Message) error {
		t.Error("handler must not be called")
		return nil
	})

	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})

	if !ack.nacked || ack.requeue {
		t.Errorf("expected nack without requeue, got %+v", ack)
	}
}

// --- Topology Tests ---

func TestQueueArgs(t *testing.T) {
	args := queueArgs(QueueRunsCompleted)
	if args["x-dead-letter-exchange"] != string(ExchangeDLQ) {
		t.Errorf("expected DLQ exchange, got %v", args)
	}
	if queueArgs(QueueDLQEvents) != nil {
		t.Error("DLQ itself must not dead-letter")
	}
}

func TestBindings(t *testing.T) {
	found := false
	for _, b := range bindings {
		if b.queue == QueueRunsCompleted && b.routingKey == RoutingKeyRunCompleted && b.exchange == ExchangeRuns {
			found = true
		}
	}
	if !found {
		t.Error("runs.completed must be bound to run.completed")
	}
}
