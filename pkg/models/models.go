package models

import "fmt"

// Task lifecycle statuses as the registry understands them.
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusCompleted  = "Completed"
	StatusError      = "Error"
)

// Task is one video in the registry awaiting transcoding.
// The registry owns it; we only read it and request status changes.
type Task struct {
	ID          string       `json:"id"`
	SourcePath  string       `json:"source_path"`
	Resolutions []Resolution `json:"resolutions"`
	Status      string       `json:"status"`
}

// Resolution describes one target rendition of a video.
type Resolution struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	Bitrate   int `json:"bitrate"` // kbit/s
	Framerate int `json:"framerate"`
}

// Label returns the "WxH" form used for folder names and manifest attributes.
func (r Resolution) Label() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// JobMessage is the durable queue payload describing one transcoding job.
// Immutable once published; one logical copy exists per task.
type JobMessage struct {
	InputPath    string       `json:"input_path"`
	OutputPath   string       `json:"output_path"` // hint, usually the task id
	Resolutions  []Resolution `json:"resolutions"`
	QueuedTaskID string       `json:"queued_task_id"`
}

// --- Registry payloads ---

// TaskUpdatePayload is the body for PUT /update/{id}.
type TaskUpdatePayload struct {
	Status       string `json:"status"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// VideoCreatePayload is the body for POST /videos/create, sent once a
// job's master manifest exists on disk.
type VideoCreatePayload struct {
	QueuedTaskID string `json:"queued_task_id"`
	VideoURL     string `json:"video_url"`
}

// StatusPatchPayload is the body for PATCH /updateStatus/{id}.
type StatusPatchPayload struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}
