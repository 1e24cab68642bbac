// Package downloads runs yt-dlp to fetch media and reports progress
// parsed from its terminal output.
package downloads

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/queue"
	"fetcharr/internal/utils/logging"
)

// Options configure the download engine.
type Options struct {
	// DownloadDir is where finished files land. Created on demand.
	DownloadDir string

	// FFmpegLocation overrides yt-dlp's ffmpeg lookup when set.
	FFmpegLocation string

	// ExternalDownloader names an alternative transfer program
	// (aria2c) passed to yt-dlp when set.
	ExternalDownloader string

	// CookieFile is a Netscape-format cookie file passed to yt-dlp.
	CookieFile string

	// MaxRetries bounds transient-failure attempts per task.
	MaxRetries int

	// RetryInterval is the pause between attempts.
	RetryInterval time.Duration
}

// Engine implements the coordinator's executor contract on top of the
// yt-dlp CLI.
type Engine struct {
	opts Options
}

// NewEngine builds an engine, normalizing the download directory to an
// absolute path and filling in retry defaults.
func NewEngine(opts Options) (*Engine, error) {
	if opts.DownloadDir == "" {
		opts.DownloadDir = consts.DefaultDownloadDir
	}
	abs, err := filepath.Abs(opts.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("resolving download directory: %w", err)
	}
	opts.DownloadDir = abs

	if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = consts.DefaultDownloadRetries
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = consts.RetryInterval
	}
	return &Engine{opts: opts}, nil
}

// Run probes metadata, then downloads with retries on transient errors.
func (e *Engine) Run(ctx context.Context, task models.Task, progress queue.ProgressFunc) (*queue.Result, error) {
	title, meta := e.probe(ctx, task.URL)
	if title != "" || meta != nil {
		progress(queue.Update{Percent: -1, Title: title, Metadata: meta})
	}

	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		path, err := e.download(ctx, task, progress)
		if err == nil {
			res := &queue.Result{Filename: filepath.Base(path), Path: path, Title: title}
			if meta != nil {
				res.Metadata = *meta
			}
			return res, nil
		}
		lastErr = err

		var engineErr *EngineError
		if !errors.As(err, &engineErr) || !engineErr.Retryable() {
			return nil, err
		}

		logging.W("Attempt %d/%d for %s failed: %v", attempt, e.opts.MaxRetries, task.URL, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.opts.RetryInterval):
		}
	}
	return nil, lastErr
}

// probeResult is the subset of yt-dlp -J output fetcharr displays.
type probeResult struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Uploader  string  `json:"uploader"`
	ViewCount int64   `json:"view_count"`
	Thumbnail string  `json:"thumbnail"`
}

// probe fetches video metadata. Failures are non-fatal; the download
// itself surfaces real errors.
func (e *Engine) probe(ctx context.Context, url string) (string, *models.Metadata) {
	cmd := e.buildProbeCommand(ctx, url)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.W("Metadata probe for %s failed: %v", url, lastErrorLine(stderr.String()))
		return "", nil
	}

	var pr probeResult
	if err := json.Unmarshal(stdout.Bytes(), &pr); err != nil {
		logging.W("Could not parse metadata for %s: %v", url, err)
		return "", nil
	}

	return pr.Title, &models.Metadata{
		Duration:     formatDuration(pr.Duration),
		Uploader:     pr.Uploader,
		ViewCount:    pr.ViewCount,
		ThumbnailURL: pr.Thumbnail,
	}
}

// download runs one yt-dlp attempt, streaming progress and returning
// the final file path.
func (e *Engine) download(ctx context.Context, task models.Task, progress queue.ProgressFunc) (string, error) {
	cmd := e.buildDownloadCommand(ctx, task)

	// Process group so cancellation also kills aria2c children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe error: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("stderr pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &EngineError{
				Kind: KindConfiguration,
				Msg:  "yt-dlp is not installed or not on $PATH",
				Err:  err,
			}
		}
		return "", fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var (
		outputPath  string
		stderrTail  bytes.Buffer
		postProcess bool
	)

	scanner := bufio.NewScanner(io.MultiReader(stdout, stderr))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		logging.D(4, "yt-dlp output for %s: %q", task.URL, line)

		// Keep a tail of output for error classification.
		stderrTail.WriteString(line)
		stderrTail.WriteByte('\n')
		if stderrTail.Len() > 8*1024 {
			stderrTail.Next(stderrTail.Len() - 8*1024)
		}

		switch {
		case isOutputPathLine(line):
			outputPath = line

		case !postProcess && IsPostProcessingLine(line):
			postProcess = true
			progress(queue.Update{Status: models.StatusConverting, Percent: -1})

		default:
			if r, ok := ParseProgressLine(line); ok && !postProcess {
				progress(queue.Update{Percent: r.Percent, Speed: r.Speed, ETA: r.ETA})
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			killProcessGroup(cmd)
			return "", ctx.Err()
		}
		return "", classifyOutput(stderrTail.String(), err)
	}

	if outputPath == "" {
		return "", &EngineError{Kind: KindProcessing, Msg: "no output filename captured"}
	}
	if err := waitForFile(outputPath, 10*time.Second); err != nil {
		return "", &EngineError{Kind: KindProcessing, Msg: err.Error(), Err: err}
	}

	logging.S(1, "Downloaded %s to %s", task.URL, outputPath)
	return outputPath, nil
}

// killProcessGroup force-kills the command's process group.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		logging.E("Failed to kill process group %d: %v", cmd.Process.Pid, err)
	}
}

// waitForFile polls until the file exists with a stable non-zero size.
func waitForFile(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastSize int64 = -1

	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err == nil && info.Size() > 0 && info.Size() == lastSize {
			return nil
		}
		if err == nil {
			lastSize = info.Size()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("file %q did not stabilize in time", path)
}

// formatDuration renders seconds as H:MM:SS or M:SS.
func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
