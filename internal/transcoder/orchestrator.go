package transcoder

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"transcode-pipeline/pkg/models"
)

// Encoder runs one rendition encode. Satisfied by *Engine.
type Encoder interface {
	EncodeRendition(ctx context.Context, inputPath, jobDir string, r models.Resolution, progress ProgressFunc) (Variant, error)
}

// Registry is the slice of the registry API the orchestrator reports to.
type Registry interface {
	UpdateTask(ctx context.Context, id string, payload models.TaskUpdatePayload) error
	CreateVideo(ctx context.Context, payload models.VideoCreatePayload) error
}

// Orchestrator turns one job message into a finished streaming package:
// concurrent per-rendition encodes, a master manifest, and registry
// status transitions.
type Orchestrator struct {
	encoder   Encoder
	registry  Registry
	outputDir string
}

func NewOrchestrator(encoder Encoder, registry Registry, outputDir string) *Orchestrator {
	return &Orchestrator{
		encoder:   encoder,
		registry:  registry,
		outputDir: outputDir,
	}
}

// Process runs one job to completion. All renditions must succeed for
// the manifest to be written; on any failure the returned error makes
// the consumer drop the message, and the registry holds the Error state.
// Partial rendition output of a failed job is left on disk: the job is
// never redelivered, so the directory is inert and cleanup stays an
// operational concern.
func (o *Orchestrator) Process(ctx context.Context, job models.JobMessage) error {
	base := job.OutputPath
	if base == "" {
		base = job.QueuedTaskID
	}
	jobDir := filepath.Join(o.outputDir, fmt.Sprintf("%s-%s", base, uuid.NewString()))
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		err = fmt.Errorf("failed to create job dir: %w", err)
		o.reportError(ctx, job.QueuedTaskID, err)
		return err
	}

	log.Printf("Job %s: encoding %d renditions into %s", job.QueuedTaskID, len(job.Resolutions), jobDir)

	// The first rendition to actually start flips the task to Processing.
	var startOnce sync.Once
	variants := make([]Variant, len(job.Resolutions))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range job.Resolutions {
		i, r := i, r
		g.Go(func() error {
			startOnce.Do(func() {
				payload := models.TaskUpdatePayload{
					Status:    models.StatusProcessing,
					StartTime: timestamp(),
				}
				if err := o.registry.UpdateTask(ctx, job.QueuedTaskID, payload); err != nil {
					log.Printf("Job %s: failed to report processing state: %v", job.QueuedTaskID, err)
				}
			})

			lastBucket := -1
			v, err := o.encoder.EncodeRendition(gctx, job.InputPath, jobDir, r, func(pct float64) {
				if b := int(pct / 25); b > lastBucket {
					lastBucket = b
					log.Printf("Job %s [%s]: %.0f%%", job.QueuedTaskID, r.Label(), pct)
				}
			})
			if err != nil {
				o.reportError(ctx, job.QueuedTaskID, err)
				return fmt.Errorf("rendition %s: %w", r.Label(), err)
			}
			variants[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	manifestPath, err := WriteMaster(jobDir, variants)
	if err != nil {
		o.reportError(ctx, job.QueuedTaskID, err)
		return err
	}

	// Completion reporting is best-effort: the encode outcome stands
	// even when the registry is unreachable.
	video := models.VideoCreatePayload{
		QueuedTaskID: job.QueuedTaskID,
		VideoURL:     manifestPath,
	}
	if err := o.registry.CreateVideo(ctx, video); err != nil {
		log.Printf("Job %s: failed to create video record: %v", job.QueuedTaskID, err)
	}
	done := models.TaskUpdatePayload{
		Status:  models.StatusCompleted,
		EndTime: timestamp(),
	}
	if err := o.registry.UpdateTask(ctx, job.QueuedTaskID, done); err != nil {
		log.Printf("Job %s: failed to report completion: %v", job.QueuedTaskID, err)
	}

	log.Printf("Job %s: completed, manifest at %s", job.QueuedTaskID, manifestPath)
	return nil
}

func (o *Orchestrator) reportError(ctx context.Context, taskID string, cause error) {
	payload := models.TaskUpdatePayload{
		Status:       models.StatusError,
		EndTime:      timestamp(),
		ErrorMessage: cause.Error(),
	}
	if err := o.registry.UpdateTask(ctx, taskID, payload); err != nil {
		log.Printf("Task %s: failed to report error state: %v", taskID, err)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
