// Package queue coordinates the download task lifecycle: admission,
// bounded concurrency, progress fan-in, and the poll buffer served to
// clients.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"
	"fetcharr/internal/validation"
)

// Update is one progress report from the extraction engine. An empty
// Status leaves the task's status unchanged; a negative Percent leaves
// progress unchanged.
type Update struct {
	Status   models.Status
	Percent  float64
	Speed    string
	ETA      string
	Title    string
	Metadata *models.Metadata
}

// ProgressFunc receives updates from a running engine.
type ProgressFunc func(Update)

// Result is the outcome of a successful engine run. Filename is the
// bare name served to clients; Path is the full on-disk location.
type Result struct {
	Filename string
	Path     string
	Title    string
	Metadata models.Metadata
}

// Executor runs the media fetch for one task, reporting progress
// through the callback until the context is cancelled or the run ends.
type Executor interface {
	Run(ctx context.Context, task models.Task, progress ProgressFunc) (*Result, error)
}

// Transcriber produces a text transcription from a downloaded file.
type Transcriber interface {
	Available() bool
	Transcribe(ctx context.Context, path string) (string, error)
}

// Recorder receives terminal task outcomes for the history log.
type Recorder interface {
	Record(task models.Task)
}

// Options tune the coordinator. Zero values fall back to defaults.
type Options struct {
	// MaxActive caps concurrently running tasks.
	MaxActive int

	// MaxBatch caps URLs accepted in one submission.
	MaxBatch int

	// MaxTaskDuration, when positive, bounds a single task's run time.
	MaxTaskDuration time.Duration

	// Transcriber, when set, handles post-download transcription.
	Transcriber Transcriber

	// History, when set, receives terminal outcomes.
	History Recorder
}

// Coordinator owns all task state. Every method is safe for concurrent
// use; a single mutex guards the maps, the pending queue, and the event
// buffer.
type Coordinator struct {
	mu      sync.Mutex
	tasks   map[string]*models.Task
	order   []string
	pending []string
	active  int
	events  []models.ProgressEvent
	cancels map[string]context.CancelFunc

	maxActive       int
	maxBatch        int
	maxTaskDuration time.Duration

	baseCtx     context.Context
	wg          sync.WaitGroup
	exec        Executor
	transcriber Transcriber
	history     Recorder
}

// maxBufferedEvents bounds the poll buffer; the oldest events are
// dropped once a slow client lets it grow past this.
const maxBufferedEvents = 512

// NewCoordinator builds a coordinator running tasks under ctx.
func NewCoordinator(ctx context.Context, exec Executor, opts Options) *Coordinator {
	if opts.MaxActive <= 0 {
		opts.MaxActive = consts.DefaultMaxConcurrent
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = consts.DefaultMaxURLsPerRequest
	}
	return &Coordinator{
		tasks:           make(map[string]*models.Task),
		cancels:         make(map[string]context.CancelFunc),
		maxActive:       opts.MaxActive,
		maxBatch:        opts.MaxBatch,
		maxTaskDuration: opts.MaxTaskDuration,
		baseCtx:         ctx,
		exec:            exec,
		transcriber:     opts.Transcriber,
		history:         opts.History,
	}
}

// Submit validates and enqueues every URL found in text, returning the
// created tasks in submission order. URLs that already have a live
// (non-terminal) task are skipped.
func (c *Coordinator) Submit(text string, format models.Format, quality string, transcribe bool) ([]models.Task, error) {
	urls := validation.SanitizeURLs(text)
	if len(urls) == 0 {
		return nil, &ValidationError{Msg: "no valid YouTube URLs found"}
	}
	if len(urls) > c.maxBatch {
		return nil, &QuotaExceededError{Max: c.maxBatch, Got: len(urls)}
	}

	quality, err := normalizeQuality(format, quality)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	created := make([]models.Task, 0, len(urls))
	for _, u := range urls {
		if c.hasLiveURLLocked(u) {
			logging.D(1, "Skipping duplicate submission of %s", u)
			continue
		}
		t := models.NewTask(u, format, quality, transcribe)
		if thumb := validation.ThumbnailURL(u, "mqdefault"); thumb != "" {
			t.Metadata.ThumbnailURL = thumb
		}
		c.tasks[t.ID] = t
		c.order = append(c.order, t.ID)
		c.pending = append(c.pending, t.ID)
		created = append(created, t.Clone())
	}

	if len(created) == 0 {
		return nil, &ValidationError{Msg: "all submitted URLs are already queued"}
	}

	c.dispatchLocked()
	return created, nil
}

// Get returns a snapshot of one task.
func (c *Coordinator) Get(id string) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}
	return t.Clone(), nil
}

// GetAll returns snapshots of every tracked task in creation order.
func (c *Coordinator) GetAll() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Task, 0, len(c.order))
	for _, id := range c.order {
		if t, ok := c.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Retry re-queues a failed task, clearing its per-attempt state. Only
// failed tasks may be retried.
func (c *Coordinator) Retry(id string) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}
	if t.Status != models.StatusFailed {
		return models.Task{}, &InvalidStateError{Op: "retry", Status: t.Status}
	}

	t.ResetForRetry()
	c.pending = append(c.pending, id)
	c.dispatchLocked()
	return t.Clone(), nil
}

// Cancel marks a queued task cancelled so it is never dispatched. Tasks
// in any other state cannot be cancelled; use Remove to stop a running
// one.
func (c *Coordinator) Cancel(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != models.StatusQueued {
		return &InvalidStateError{Op: "cancel", Status: t.Status}
	}

	t.SetStatus(models.StatusCancelled, "")
	c.recordLocked(t)
	return nil
}

// Remove drops a task in any state. A running task's context is
// cancelled best-effort; progress reports arriving after removal are
// discarded.
func (c *Coordinator) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tasks[id]; !ok {
		return ErrNotFound
	}

	if cancel, ok := c.cancels[id]; ok {
		cancel()
	}
	c.deleteLocked(id)
	return nil
}

// ClearCompleted removes every task in a terminal state and returns how
// many were dropped. Safe to call repeatedly.
func (c *Coordinator) ClearCompleted() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cleared := 0
	for _, id := range append([]string(nil), c.order...) {
		t, ok := c.tasks[id]
		if !ok || !t.Status.IsTerminal() {
			continue
		}
		c.deleteLocked(id)
		cleared++
	}
	return cleared
}

// PollUpdates drains and returns the buffered progress events. A second
// poll with no intervening activity returns an empty slice.
func (c *Coordinator) PollUpdates() []models.ProgressEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.events
	c.events = nil
	if out == nil {
		out = []models.ProgressEvent{}
	}
	return out
}

// Statistics returns per-status counts over the tracked tasks.
func (c *Coordinator) Statistics() models.Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s models.Statistics
	for _, t := range c.tasks {
		s.Total++
		switch t.Status {
		case models.StatusQueued:
			s.Queued++
		case models.StatusDownloading:
			s.Downloading++
		case models.StatusConverting:
			s.Converting++
		case models.StatusTranscribing:
			s.Transcribing++
		case models.StatusCompleted:
			s.Completed++
		case models.StatusFailed:
			s.Failed++
		case models.StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Shutdown cancels every running task and waits for their goroutines,
// or until ctx expires.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchLocked promotes pending tasks into free slots in FIFO order.
// Tasks cancelled while queued are skipped without consuming a slot.
func (c *Coordinator) dispatchLocked() {
	for c.active < c.maxActive && len(c.pending) > 0 {
		id := c.pending[0]
		c.pending = c.pending[1:]

		t, ok := c.tasks[id]
		if !ok || t.Status != models.StatusQueued {
			continue
		}

		t.SetStatus(models.StatusDownloading, "")
		c.emitLocked(t)
		c.active++

		var ctx context.Context
		var cancel context.CancelFunc
		if c.maxTaskDuration > 0 {
			ctx, cancel = context.WithTimeout(c.baseCtx, c.maxTaskDuration)
		} else {
			ctx, cancel = context.WithCancel(c.baseCtx)
		}
		c.cancels[id] = cancel

		c.wg.Add(1)
		go c.run(ctx, id, t.Clone())
	}
}

// run drives one task to a terminal state and releases its slot.
func (c *Coordinator) run(ctx context.Context, id string, snapshot models.Task) {
	defer c.wg.Done()

	logging.I("Starting download of %s (%s/%s)", snapshot.URL, snapshot.Format, snapshot.Quality)

	res, err := c.exec.Run(ctx, snapshot, func(u Update) {
		c.applyUpdate(id, u)
	})
	ctxErr := ctx.Err()

	var transcription string
	var transcribeErr error
	if err == nil && snapshot.Metadata.TranscriptionRequested && c.transcriber != nil && c.transcriber.Available() {
		if c.markTranscribing(id) {
			transcription, transcribeErr = c.transcriber.Transcribe(ctx, res.Path)
			if transcribeErr != nil {
				logging.W("Transcription of %q failed, keeping download: %v", res.Path, transcribeErr)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.active--
	if cancel, ok := c.cancels[id]; ok {
		cancel()
		delete(c.cancels, id)
	}
	defer c.dispatchLocked()

	t, ok := c.tasks[id]
	if !ok {
		// Removed while running; the engine was already cancelled.
		return
	}

	switch {
	case err != nil && errors.Is(ctxErr, context.DeadlineExceeded):
		t.SetStatus(models.StatusFailed, "download exceeded the maximum allowed duration")
	case err != nil && errors.Is(ctxErr, context.Canceled):
		t.SetStatus(models.StatusCancelled, "")
	case err != nil:
		logging.E("Download of %s failed: %v", snapshot.URL, err)
		t.SetStatus(models.StatusFailed, err.Error())
	default:
		t.Progress = 100
		t.Speed = ""
		t.ETA = ""
		if res.Filename != "" {
			t.Filename = res.Filename
		}
		if res.Title != "" {
			t.Title = res.Title
		}
		mergeMetadata(&t.Metadata, res.Metadata)
		t.Transcription = transcription
		t.SetStatus(models.StatusCompleted, "")
		logging.S(0, "Finished %s", snapshot.URL)
	}

	c.emitLocked(t)
	c.recordLocked(t)
}

// markTranscribing flips a still-tracked task into the transcribing
// state, reporting whether the transcription should proceed.
func (c *Coordinator) markTranscribing(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[id]
	if !ok {
		return false
	}
	t.Progress = 100
	t.Speed = ""
	t.ETA = ""
	t.SetStatus(models.StatusTranscribing, "")
	c.emitLocked(t)
	return true
}

// applyUpdate folds one engine report into the task and buffers an
// event. Reports for removed or already-terminal tasks are discarded.
func (c *Coordinator) applyUpdate(id string, u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[id]
	if !ok || t.Status.IsTerminal() {
		return
	}

	if u.Status != "" && u.Status != t.Status {
		t.Status = u.Status
		if u.Status == models.StatusConverting {
			// Transfer is done once post-processing starts.
			t.Progress = 100
			t.Speed = ""
			t.ETA = ""
		}
	}

	// Progress only moves forward, and is held at 100 while
	// post-processing runs.
	if u.Percent >= 0 && t.Status == models.StatusDownloading {
		p := min(max(u.Percent, 0), 100)
		if p > t.Progress {
			t.Progress = p
		}
	}

	if u.Speed != "" {
		t.Speed = u.Speed
	}
	if u.ETA != "" {
		t.ETA = u.ETA
	}
	if u.Title != "" {
		t.Title = u.Title
	}
	if u.Metadata != nil {
		mergeMetadata(&t.Metadata, *u.Metadata)
	}

	c.emitLocked(t)
}

// emitLocked appends a snapshot event to the poll buffer.
func (c *Coordinator) emitLocked(t *models.Task) {
	c.events = append(c.events, models.ProgressEvent{
		Type: models.EventStatusUpdate,
		Task: t.Clone(),
	})
	if len(c.events) > maxBufferedEvents {
		c.events = c.events[len(c.events)-maxBufferedEvents:]
	}
}

// recordLocked hands a terminal outcome to the history log, if any.
func (c *Coordinator) recordLocked(t *models.Task) {
	if c.history != nil {
		c.history.Record(t.Clone())
	}
}

// deleteLocked drops a task from every tracking structure.
func (c *Coordinator) deleteLocked(id string) {
	delete(c.tasks, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	for i, pid := range c.pending {
		if pid == id {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
}

// hasLiveURLLocked reports whether the URL already has a task that is
// queued or running.
func (c *Coordinator) hasLiveURLLocked(url string) bool {
	for _, t := range c.tasks {
		if t.URL == url && !t.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// mergeMetadata copies non-zero fields from src over dst, preserving
// the transcription flag and any earlier values.
func mergeMetadata(dst *models.Metadata, src models.Metadata) {
	if src.Duration != "" {
		dst.Duration = src.Duration
	}
	if src.Uploader != "" {
		dst.Uploader = src.Uploader
	}
	if src.ViewCount != 0 {
		dst.ViewCount = src.ViewCount
	}
	if src.ThumbnailURL != "" {
		dst.ThumbnailURL = src.ThumbnailURL
	}
}

// normalizeQuality validates the requested quality for the format,
// substituting the default when empty.
func normalizeQuality(format models.Format, quality string) (string, error) {
	switch format {
	case models.FormatAudio:
		if quality == "" {
			return consts.DefaultAudioQuality, nil
		}
		if _, ok := consts.AudioQualityOptions[quality]; !ok {
			return "", &ValidationError{Msg: "invalid audio quality " + quality}
		}
	case models.FormatVideo:
		if quality == "" {
			return consts.DefaultVideoQuality, nil
		}
		if _, ok := consts.VideoQualityOptions[quality]; !ok {
			return "", &ValidationError{Msg: "invalid video quality " + quality}
		}
	default:
		return "", &ValidationError{Msg: "invalid format " + string(format)}
	}
	return quality, nil
}
