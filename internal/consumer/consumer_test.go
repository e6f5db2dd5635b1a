package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"transcode-pipeline/pkg/models"
)

type fakeDelivery struct {
	body     []byte
	acked    bool
	rejected bool
}

func (d *fakeDelivery) Body() []byte { return d.body }
func (d *fakeDelivery) Ack() error   { d.acked = true; return nil }
func (d *fakeDelivery) Reject() error {
	d.rejected = true
	return nil
}

type fakeProcessor struct {
	err  error
	jobs []models.JobMessage
}

func (p *fakeProcessor) Process(ctx context.Context, job models.JobMessage) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

func validBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.JobMessage{
		InputPath:    "uploads/cat.mp4",
		QueuedTaskID: "t1",
		Resolutions:  []models.Resolution{{Width: 640, Height: 360, Bitrate: 800, Framerate: 30}},
	})
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	return body
}

func TestHandleAcksOnSuccess(t *testing.T) {
	p := &fakeProcessor{}
	d := &fakeDelivery{body: validBody(t)}

	New(p).Handle(context.Background(), d)

	if !d.acked || d.rejected {
		t.Fatalf("acked=%v rejected=%v, want ack only", d.acked, d.rejected)
	}
	if len(p.jobs) != 1 || p.jobs[0].QueuedTaskID != "t1" {
		t.Fatalf("processor saw %+v, want one job for t1", p.jobs)
	}
}

func TestHandleRejectsOnProcessFailure(t *testing.T) {
	p := &fakeProcessor{err: errors.New("encode blew up")}
	d := &fakeDelivery{body: validBody(t)}

	New(p).Handle(context.Background(), d)

	if !d.rejected || d.acked {
		t.Fatalf("acked=%v rejected=%v, want reject only", d.acked, d.rejected)
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	p := &fakeProcessor{}
	d := &fakeDelivery{body: []byte("{not json")}

	New(p).Handle(context.Background(), d)

	if !d.rejected || d.acked {
		t.Fatalf("acked=%v rejected=%v, want reject only", d.acked, d.rejected)
	}
	if len(p.jobs) != 0 {
		t.Fatalf("processor should not run for malformed payloads, saw %d jobs", len(p.jobs))
	}
}
