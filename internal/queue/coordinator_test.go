package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fetcharr/internal/models"
)

// fakeRun is one in-flight invocation of the fake executor. Tests drive
// it by calling the progress callback and closing it out via finish.
type fakeRun struct {
	task     models.Task
	progress ProgressFunc
	done     chan error
	res      *Result
}

func (r *fakeRun) finish(err error) {
	r.done <- err
}

type fakeExecutor struct {
	runs chan *fakeRun
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{runs: make(chan *fakeRun, 16)}
}

func (f *fakeExecutor) Run(ctx context.Context, task models.Task, progress ProgressFunc) (*Result, error) {
	r := &fakeRun{
		task:     task,
		progress: progress,
		done:     make(chan error, 1),
		res:      &Result{Filename: task.ID + ".mp4", Path: "/tmp/" + task.ID + ".mp4", Title: "Video " + task.ID},
	}
	f.runs <- r

	select {
	case err := <-r.done:
		if err != nil {
			return nil, err
		}
		return r.res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeTranscriber struct {
	text      string
	err       error
	available bool
}

func (f *fakeTranscriber) Available() bool { return f.available }

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

func nextRun(t *testing.T, f *fakeExecutor) *fakeRun {
	t.Helper()
	select {
	case r := <-f.runs:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a download to start")
		return nil
	}
}

func expectNoRun(t *testing.T, f *fakeExecutor) {
	t.Helper()
	select {
	case r := <-f.runs:
		t.Fatalf("unexpected download started for %s", r.task.URL)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitForStatus(t *testing.T, c *Coordinator, id string, want models.Status) models.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last models.Task
	for time.Now().Before(deadline) {
		got, err := c.Get(id)
		if err == nil {
			last = got
			if got.Status == want {
				return got
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached %q, last status %q", id, want, last.Status)
	return models.Task{}
}

func videoURL(n int) string {
	return fmt.Sprintf("https://youtu.be/video%05d", n)
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1})

	created, err := c.Submit(videoURL(1), models.FormatVideo, "720p", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("got %d tasks, want 1", len(created))
	}
	id := created[0].ID

	r := nextRun(t, exec)
	if r.task.URL != videoURL(1) {
		t.Errorf("executor got URL %q, want %q", r.task.URL, videoURL(1))
	}

	r.progress(Update{Percent: 42.5, Speed: "1.2MiB/s", ETA: "00:30"})
	r.progress(Update{Status: models.StatusConverting, Percent: -1})
	r.finish(nil)

	got := waitForStatus(t, c, id, models.StatusCompleted)
	if got.Progress != 100 {
		t.Errorf("progress = %v, want 100", got.Progress)
	}
	if got.Filename != id+".mp4" {
		t.Errorf("filename = %q, want %q", got.Filename, id+".mp4")
	}
	if got.CompletedAt == nil {
		t.Error("completed task has no completion time")
	}

	events := c.PollUpdates()
	if len(events) == 0 {
		t.Fatal("no progress events buffered")
	}
	statuses := make([]models.Status, 0, len(events))
	for _, ev := range events {
		if ev.Type != models.EventStatusUpdate {
			t.Errorf("event type = %q, want %q", ev.Type, models.EventStatusUpdate)
		}
		statuses = append(statuses, ev.Task.Status)
	}
	if statuses[0] != models.StatusDownloading {
		t.Errorf("first event status = %q, want %q", statuses[0], models.StatusDownloading)
	}
	if statuses[len(statuses)-1] != models.StatusCompleted {
		t.Errorf("last event status = %q, want %q", statuses[len(statuses)-1], models.StatusCompleted)
	}
}

func TestConcurrencyBoundAndFIFO(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 2})

	text := videoURL(1) + "\n" + videoURL(2) + "\n" + videoURL(3) + "\n" + videoURL(4)
	created, err := c.Submit(text, models.FormatAudio, "high", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("got %d tasks, want 4", len(created))
	}

	first := nextRun(t, exec)
	second := nextRun(t, exec)
	expectNoRun(t, exec)

	stats := c.Statistics()
	if stats.Downloading != 2 || stats.Queued != 2 {
		t.Fatalf("stats = %+v, want 2 downloading and 2 queued", stats)
	}

	first.finish(nil)
	third := nextRun(t, exec)
	if third.task.URL != videoURL(3) {
		t.Errorf("promoted %q, want %q (FIFO order)", third.task.URL, videoURL(3))
	}

	second.finish(nil)
	fourth := nextRun(t, exec)
	if fourth.task.URL != videoURL(4) {
		t.Errorf("promoted %q, want %q", fourth.task.URL, videoURL(4))
	}

	third.finish(nil)
	fourth.finish(nil)
	for _, task := range created {
		waitForStatus(t, c, task.ID, models.StatusCompleted)
	}
}

func TestRetry(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1})

	created, err := c.Submit(videoURL(1), models.FormatVideo, "", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	id := created[0].ID

	r := nextRun(t, exec)
	r.progress(Update{Percent: 60})
	r.finish(errors.New("network error downloading video"))

	failed := waitForStatus(t, c, id, models.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Error("failed task has no error message")
	}

	retried, err := c.Retry(id)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Progress != 0 || retried.ErrorMessage != "" || retried.Speed != "" {
		t.Errorf("retry did not reset per-attempt state: %+v", retried)
	}

	// The task is downloading again; a second retry must be rejected.
	r = nextRun(t, exec)
	var stateErr *InvalidStateError
	if _, err := c.Retry(id); !errors.As(err, &stateErr) {
		t.Fatalf("Retry on active task: got %v, want InvalidStateError", err)
	}

	r.finish(nil)
	waitForStatus(t, c, id, models.StatusCompleted)

	if _, err := c.Retry("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Retry of unknown ID: got %v, want ErrNotFound", err)
	}
}

func TestCancelQueued(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1})

	created, err := c.Submit(videoURL(1)+" "+videoURL(2), models.FormatVideo, "best", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	running, queued := created[0], created[1]

	r := nextRun(t, exec)
	c.PollUpdates() // drop the dispatch event for the first task

	if err := c.Cancel(queued.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, _ := c.Get(queued.ID)
	if got.Status != models.StatusCancelled {
		t.Fatalf("status = %q, want %q", got.Status, models.StatusCancelled)
	}

	// Cancelling a running task is rejected.
	var stateErr *InvalidStateError
	if err := c.Cancel(running.ID); !errors.As(err, &stateErr) {
		t.Fatalf("Cancel on running task: got %v, want InvalidStateError", err)
	}

	r.finish(nil)
	waitForStatus(t, c, running.ID, models.StatusCompleted)

	// The cancelled task is skipped by dispatch and produces no events.
	expectNoRun(t, exec)
	for _, ev := range c.PollUpdates() {
		if ev.Task.ID == queued.ID {
			t.Errorf("cancelled-before-dispatch task produced event %+v", ev)
		}
	}
}

func TestRemoveRunning(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1})

	created, err := c.Submit(videoURL(1)+" "+videoURL(2), models.FormatVideo, "best", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	removed := created[0]

	r := nextRun(t, exec)
	if err := c.Remove(removed.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := c.Get(removed.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after remove: got %v, want ErrNotFound", err)
	}

	// Removal frees the slot for the next queued task.
	next := nextRun(t, exec)
	if next.task.URL != videoURL(2) {
		t.Errorf("promoted %q, want %q", next.task.URL, videoURL(2))
	}

	// Late progress reports for the removed task are discarded.
	c.PollUpdates()
	r.progress(Update{Percent: 90})
	for _, ev := range c.PollUpdates() {
		if ev.Task.ID == removed.ID {
			t.Errorf("removed task produced event %+v", ev)
		}
	}

	next.finish(nil)
	waitForStatus(t, c, created[1].ID, models.StatusCompleted)

	if err := c.Remove(removed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove: got %v, want ErrNotFound", err)
	}
}

func TestClearCompleted(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 2})

	text := videoURL(1) + " " + videoURL(2) + " " + videoURL(3) + " " + videoURL(4)
	created, err := c.Submit(text, models.FormatAudio, "low", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	first := nextRun(t, exec)
	second := nextRun(t, exec)
	if err := c.Cancel(created[3].ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	first.finish(nil)
	second.finish(errors.New("video unavailable"))
	waitForStatus(t, c, created[0].ID, models.StatusCompleted)
	waitForStatus(t, c, created[1].ID, models.StatusFailed)

	// Completed, Failed and Cancelled go; the running third task stays.
	third := nextRun(t, exec)
	if cleared := c.ClearCompleted(); cleared != 3 {
		t.Fatalf("ClearCompleted = %d, want 3", cleared)
	}
	if cleared := c.ClearCompleted(); cleared != 0 {
		t.Errorf("second ClearCompleted = %d, want 0", cleared)
	}

	all := c.GetAll()
	if len(all) != 1 || all[0].ID != created[2].ID {
		t.Fatalf("remaining tasks = %v, want only the running one", all)
	}
	third.finish(nil)
	waitForStatus(t, c, created[2].ID, models.StatusCompleted)
}

func TestPollUpdatesDrains(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{})

	if _, err := c.Submit(videoURL(1), models.FormatVideo, "", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r := nextRun(t, exec)
	r.progress(Update{Percent: 10})
	r.progress(Update{Percent: 20})

	first := c.PollUpdates()
	if len(first) == 0 {
		t.Fatal("first poll returned no events")
	}
	if second := c.PollUpdates(); len(second) != 0 {
		t.Fatalf("second poll returned %d events, want 0", len(second))
	}
	r.finish(nil)
}

func TestProgressMonotonicAndClamped(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{})

	created, err := c.Submit(videoURL(1), models.FormatVideo, "", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	id := created[0].ID
	r := nextRun(t, exec)

	r.progress(Update{Percent: 50})
	r.progress(Update{Percent: 30}) // out-of-order report
	got, _ := c.Get(id)
	if got.Progress != 50 {
		t.Errorf("progress after out-of-order report = %v, want 50", got.Progress)
	}

	r.progress(Update{Percent: 150})
	got, _ = c.Get(id)
	if got.Progress != 100 {
		t.Errorf("progress after oversized report = %v, want 100", got.Progress)
	}

	// Post-processing holds progress at 100.
	r.progress(Update{Status: models.StatusConverting, Percent: -1})
	r.progress(Update{Percent: 10})
	got, _ = c.Get(id)
	if got.Progress != 100 || got.Status != models.StatusConverting {
		t.Errorf("during conversion got progress %v status %q, want 100 Converting", got.Progress, got.Status)
	}
	r.finish(nil)
	waitForStatus(t, c, id, models.StatusCompleted)
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1, MaxBatch: 10})

	var valErr *ValidationError
	if _, err := c.Submit("not a url at all", models.FormatVideo, "", false); !errors.As(err, &valErr) {
		t.Errorf("invalid text: got %v, want ValidationError", err)
	}
	if _, err := c.Submit(videoURL(1), models.FormatAudio, "ultra", false); !errors.As(err, &valErr) {
		t.Errorf("invalid quality: got %v, want ValidationError", err)
	}

	var text string
	for i := 0; i < 11; i++ {
		text += videoURL(i) + "\n"
	}
	var quotaErr *QuotaExceededError
	if _, err := c.Submit(text, models.FormatVideo, "", false); !errors.As(err, &quotaErr) {
		t.Fatalf("oversized batch: got %v, want QuotaExceededError", err)
	}
	if quotaErr.Got != 11 || quotaErr.Max != 10 {
		t.Errorf("quota error = %+v, want got 11 max 10", quotaErr)
	}
}

func TestSubmitDuplicateSuppression(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1})

	created, err := c.Submit(videoURL(1)+" "+videoURL(1), models.FormatVideo, "", false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("duplicate batch created %d tasks, want 1", len(created))
	}

	// Resubmitting while the task is live is rejected outright.
	var valErr *ValidationError
	if _, err := c.Submit(videoURL(1), models.FormatVideo, "", false); !errors.As(err, &valErr) {
		t.Fatalf("live duplicate: got %v, want ValidationError", err)
	}

	r := nextRun(t, exec)
	r.finish(nil)
	waitForStatus(t, c, created[0].ID, models.StatusCompleted)

	// Once terminal, the same URL may be downloaded again.
	again, err := c.Submit(videoURL(1), models.FormatVideo, "", false)
	if err != nil {
		t.Fatalf("resubmit after completion: %v", err)
	}
	r = nextRun(t, exec)
	r.finish(nil)
	waitForStatus(t, c, again[0].ID, models.StatusCompleted)
}

func TestTranscription(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	tr := &fakeTranscriber{text: "hello world", available: true}
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1, Transcriber: tr})

	created, err := c.Submit(videoURL(1), models.FormatAudio, "high", true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	id := created[0].ID

	r := nextRun(t, exec)
	r.finish(nil)

	got := waitForStatus(t, c, id, models.StatusCompleted)
	if got.Transcription != "hello world" {
		t.Errorf("transcription = %q, want %q", got.Transcription, "hello world")
	}

	sawTranscribing := false
	for _, ev := range c.PollUpdates() {
		if ev.Task.Status == models.StatusTranscribing {
			sawTranscribing = true
		}
	}
	if !sawTranscribing {
		t.Error("no transcribing event observed")
	}
}

func TestTranscriptionFailureKeepsDownload(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	tr := &fakeTranscriber{err: errors.New("whisper crashed"), available: true}
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1, Transcriber: tr})

	created, err := c.Submit(videoURL(1), models.FormatAudio, "high", true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	r := nextRun(t, exec)
	r.finish(nil)

	got := waitForStatus(t, c, created[0].ID, models.StatusCompleted)
	if got.Transcription != "" {
		t.Errorf("transcription = %q, want empty", got.Transcription)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty after degraded transcription", got.ErrorMessage)
	}
}

func TestShutdownCancelsRunning(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor()
	c := NewCoordinator(context.Background(), exec, Options{MaxActive: 1})

	if _, err := c.Submit(videoURL(1), models.FormatVideo, "", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	nextRun(t, exec)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
