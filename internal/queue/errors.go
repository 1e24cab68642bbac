package queue

import (
	"errors"
	"fmt"

	"fetcharr/internal/models"
)

// ErrNotFound is returned when an operation references a task ID the
// coordinator does not know (including already-removed tasks).
var ErrNotFound = errors.New("task not found")

// ValidationError reports rejected input on submission.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// QuotaExceededError reports a batch submission above the per-request
// URL cap.
type QuotaExceededError struct {
	Max int
	Got int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("too many URLs in one request: got %d, maximum is %d", e.Got, e.Max)
}

// InvalidStateError reports a lifecycle operation applied to a task in
// the wrong state, e.g. retrying a task that has not failed.
type InvalidStateError struct {
	Op     string
	Status models.Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s task in state %q", e.Op, e.Status)
}
