package consumer

import (
	"context"
	"encoding/json"
	"log"

	"transcode-pipeline/pkg/models"
)

// Delivery is one in-flight message. Implemented by queue.Delivery.
type Delivery interface {
	Body() []byte
	Ack() error
	Reject() error
}

// Processor runs one job to completion. Implemented by the orchestrator.
type Processor interface {
	Process(ctx context.Context, job models.JobMessage) error
}

// Consumer handles deliveries one at a time (the broker's prefetch=1
// contract serializes them) and settles each based on the outcome.
type Consumer struct {
	processor Processor
}

func New(processor Processor) *Consumer {
	return &Consumer{processor: processor}
}

// Handle settles exactly one delivery: ack on success, reject without
// requeue on any failure. A failed job is not retried because a single
// attempt's side effects (partial files, status updates) are not
// idempotent; the registry's Error status is the recorded outcome.
func (c *Consumer) Handle(ctx context.Context, d Delivery) {
	var job models.JobMessage
	if err := json.Unmarshal(d.Body(), &job); err != nil {
		// No task id is recoverable from a malformed payload, so the
		// registry cannot be told; log and drop.
		log.Printf("Consumer: discarding malformed job payload: %v", err)
		if err := d.Reject(); err != nil {
			log.Printf("Consumer: failed to reject message: %v", err)
		}
		return
	}

	log.Printf("Consumer: picked up job for task %s", job.QueuedTaskID)

	if err := c.processor.Process(ctx, job); err != nil {
		log.Printf("Consumer: job for task %s failed: %v", job.QueuedTaskID, err)
		if err := d.Reject(); err != nil {
			log.Printf("Consumer: failed to reject message: %v", err)
		}
		return
	}

	if err := d.Ack(); err != nil {
		log.Printf("Consumer: failed to ack message for task %s: %v", job.QueuedTaskID, err)
	}
}
