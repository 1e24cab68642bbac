// Package models holds the data models shared across fetcharr.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is one requested download (and optional transcription) job.
//
// The JSON shape is the canonical representation consumed by the
// frontend; field names must not change.
type Task struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Format        Format     `json:"format"`
	Quality       string     `json:"quality"`
	Status        Status     `json:"status"`
	Progress      float64    `json:"progress"`
	Speed         string     `json:"speed"`
	ETA           string     `json:"eta"`
	Title         string     `json:"title"`
	Filename      string     `json:"filename"`
	ErrorMessage  string     `json:"error_message"`
	Transcription string     `json:"transcription"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Metadata      Metadata   `json:"metadata"`
}

// Metadata holds video details populated once the extraction engine
// reports them. Zero values mean "not known yet".
type Metadata struct {
	Duration               string `json:"duration,omitempty"`
	Uploader               string `json:"uploader,omitempty"`
	ViewCount              int64  `json:"view_count,omitempty"`
	ThumbnailURL           string `json:"thumbnail_url,omitempty"`
	TranscriptionRequested bool   `json:"transcription_requested"`
}

// NewTask creates a queued task with a fresh ID.
func NewTask(url string, format Format, quality string, wantsTranscription bool) *Task {
	return &Task{
		ID:        uuid.NewString(),
		URL:       url,
		Format:    format,
		Quality:   quality,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		Metadata: Metadata{
			TranscriptionRequested: wantsTranscription,
		},
	}
}

// SetStatus updates the status, recording the error message on failure
// and the completion timestamp on terminal states.
func (t *Task) SetStatus(status Status, errMsg string) {
	t.Status = status
	if errMsg != "" {
		t.ErrorMessage = errMsg
	}
	if status.IsTerminal() {
		now := time.Now()
		t.CompletedAt = &now
	}
}

// ResetForRetry returns the task to the queued state, clearing all
// per-attempt fields.
func (t *Task) ResetForRetry() {
	t.Status = StatusQueued
	t.Progress = 0
	t.Speed = ""
	t.ETA = ""
	t.ErrorMessage = ""
	t.Filename = ""
	t.CompletedAt = nil
}

// Clone returns a deep copy suitable for handing to callers outside the
// coordinator's lock.
func (t *Task) Clone() Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// ProgressEvent is one buffered notification carrying a task snapshot,
// consumed by polling clients.
type ProgressEvent struct {
	Type string `json:"type"`
	Task Task   `json:"task"`
}

// EventStatusUpdate is the only event type currently emitted.
const EventStatusUpdate = "status_update"

// Statistics holds per-status task counts.
type Statistics struct {
	Total        int `json:"total"`
	Queued       int `json:"queued"`
	Downloading  int `json:"downloading"`
	Converting   int `json:"converting"`
	Transcribing int `json:"transcribing"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	Cancelled    int `json:"cancelled"`
}
