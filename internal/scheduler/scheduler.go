package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"transcode-pipeline/internal/config"
	"transcode-pipeline/internal/monitor"
	"transcode-pipeline/pkg/models"
)

// Broker is the slice of the queue transport the scheduler needs.
type Broker interface {
	Depth(queueName string) (int, error)
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Registry fetches pending tasks and records per-task publish failures.
type Registry interface {
	FetchPending(ctx context.Context, limit int) ([]models.Task, error)
	PatchStatus(ctx context.Context, id string, payload models.StatusPatchPayload) error
}

// HostGate reports whether the local host has headroom for more work.
type HostGate interface {
	Snapshot(ctx context.Context) (monitor.Stats, error)
}

// Scheduler periodically admits pending tasks into the work queue.
// Admission is bounded by the configured capacity ceiling minus the
// broker's current depth, so downstream workers are never over-queued.
type Scheduler struct {
	broker    Broker
	registry  Registry
	gate      HostGate
	queueName string
	capacity  int
	interval  time.Duration
	uploadDir string
}

func New(cfg *config.Config, broker Broker, registry Registry, gate HostGate) *Scheduler {
	return &Scheduler{
		broker:    broker,
		registry:  registry,
		gate:      gate,
		queueName: cfg.QueueName,
		capacity:  cfg.MaxQueueCapacity,
		interval:  time.Duration(cfg.SchedulerSec) * time.Second,
		uploadDir: cfg.UploadDir,
	}
}

// Start launches the scheduling loop in a non-blocking way. The cycle
// body runs inline in the loop goroutine, so a slow cycle delays the
// next tick instead of overlapping with it.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		log.Printf("Scheduler started (capacity=%d, interval=%s)", s.capacity, s.interval)

		for {
			select {
			case <-ctx.Done():
				log.Println("Stopping scheduler...")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// runCycle performs one admission pass. Any failure aborts the cycle
// without mutating state; pending tasks are simply seen again next tick.
func (s *Scheduler) runCycle(ctx context.Context) {
	if s.gate != nil {
		stats, err := s.gate.Snapshot(ctx)
		if err == nil && stats.Busy {
			log.Printf("Scheduler: host busy (cpu=%.0f%% ram=%.0f%%), skipping cycle", stats.CPUPercent, stats.RAMPercent)
			return
		}
	}

	depth, err := s.broker.Depth(s.queueName)
	if err != nil {
		log.Printf("Scheduler: failed to read queue depth: %v", err)
		return
	}

	available := s.capacity - depth
	if available <= 0 {
		// Queue is full; no registry call, no publish. This is the
		// backpressure mechanism.
		return
	}

	tasks, err := s.registry.FetchPending(ctx, available)
	if err != nil {
		log.Printf("Scheduler: failed to fetch pending tasks: %v", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	log.Printf("Scheduler: admitting %d task(s) (depth=%d, capacity=%d)", len(tasks), depth, s.capacity)

	for _, task := range tasks {
		if err := s.publishJob(ctx, task); err != nil {
			// One bad task must not sink its siblings in the batch.
			log.Printf("Scheduler: failed to publish job for task %s: %v", task.ID, err)
			s.reportPublishError(ctx, task.ID, err)
		}
	}
}

// publishJob builds and publishes the durable job message for one task.
func (s *Scheduler) publishJob(ctx context.Context, task models.Task) error {
	job := models.JobMessage{
		InputPath:    filepath.Join(s.uploadDir, task.SourcePath),
		OutputPath:   task.ID,
		Resolutions:  task.Resolutions,
		QueuedTaskID: task.ID,
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	return s.broker.Publish(ctx, s.queueName, body)
}

func (s *Scheduler) reportPublishError(ctx context.Context, taskID string, cause error) {
	payload := models.StatusPatchPayload{
		Status:       models.StatusError,
		ErrorMessage: cause.Error(),
	}
	if err := s.registry.PatchStatus(ctx, taskID, payload); err != nil {
		log.Printf("Scheduler: failed to report error for task %s: %v", taskID, err)
	}
}
