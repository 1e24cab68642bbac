package models

// Status represents the lifecycle state of a download task.
//
// Values are serialized as-is; the capitalized words are displayed
// directly by the frontend.
type Status string

const (
	// StatusQueued means the task is waiting for a free download slot.
	StatusQueued Status = "Queued"

	// StatusDownloading means the media fetch is in progress.
	StatusDownloading Status = "Downloading"

	// StatusConverting means yt-dlp post-processing (audio extraction or
	// remux) is in progress.
	StatusConverting Status = "Converting"

	// StatusTranscribing means the speech-to-text pass is in progress.
	StatusTranscribing Status = "Transcribing"

	// StatusCompleted means the task finished successfully.
	StatusCompleted Status = "Completed"

	// StatusFailed means the task failed with an error.
	StatusFailed Status = "Failed"

	// StatusCancelled means the task was cancelled before it started.
	StatusCancelled Status = "Cancelled"
)

// String returns the display form of the status.
func (s Status) String() string {
	return string(s)
}

// IsActive returns true while the task occupies a download slot.
func (s Status) IsActive() bool {
	return s == StatusDownloading || s == StatusConverting || s == StatusTranscribing
}

// IsTerminal returns true once the task can no longer change state
// (other than via an explicit retry).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
