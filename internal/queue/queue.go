package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotInitialized is returned by every operation attempted before
// Connect has completed. Callers must fail fast instead of hanging.
var ErrNotInitialized = errors.New("queue transport not initialized")

// Transport owns the single AMQP connection and channel shared by the
// scheduler (depth/publish) and the consumer for the process lifetime.
type Transport struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewTransport() *Transport {
	return &Transport{}
}

// Connect dials the broker, opens the shared channel and declares the
// work queue as durable so messages survive a broker restart.
// It must be called exactly once; a second call is an error.
func (t *Transport) Connect(url, queueName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ch != nil {
		return errors.New("queue transport already connected")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}

	t.conn = conn
	t.ch = ch
	log.Printf("Queue transport connected, declared durable queue %q", queueName)
	return nil
}

// channel hands out the shared channel, or refuses if Connect never ran.
func (t *Transport) channel() (*amqp.Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ch == nil {
		return nil, ErrNotInitialized
	}
	return t.ch, nil
}

// Publish places one persistent message on the named queue.
func (t *Transport) Publish(ctx context.Context, queueName string, body []byte) error {
	ch, err := t.channel()
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Depth reports the broker-side message count for the named queue.
// The passive declare fails if the queue is missing instead of
// silently creating a second one.
func (t *Transport) Depth(queueName string) (int, error) {
	ch, err := t.channel()
	if err != nil {
		return 0, err
	}

	q, err := ch.QueueDeclarePassive(queueName, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue %q: %w", queueName, err)
	}
	return q.Messages, nil
}

// Delivery is one message handed to a consumer handler. The handler
// must finish with exactly one of Ack or Reject.
type Delivery struct {
	d amqp.Delivery
}

// Body returns the raw message payload.
func (d Delivery) Body() []byte { return d.d.Body }

// Ack removes the message from the queue permanently.
func (d Delivery) Ack() error { return d.d.Ack(false) }

// Reject drops the message without requeueing it. A failed job is
// never redelivered; its terminal state lives in the registry.
func (d Delivery) Reject() error { return d.d.Nack(false, false) }

// Consume subscribes with prefetch 1, so the broker delivers at most
// one unacknowledged message to this process at a time. It blocks
// until ctx is cancelled or the delivery stream closes.
func (t *Transport) Consume(ctx context.Context, queueName string, handler func(Delivery)) error {
	ch, err := t.channel()
	if err != nil {
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.Printf("Consuming from queue %q (prefetch=1)", queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery stream closed by broker")
			}
			handler(Delivery{d: d})
		}
	}
}

// Close tears down the channel and connection on shutdown.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ch == nil {
		return nil
	}
	if err := t.ch.Close(); err != nil {
		t.conn.Close()
		return err
	}
	return t.conn.Close()
}
