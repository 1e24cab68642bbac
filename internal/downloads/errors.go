package downloads

import (
	"fmt"
	"strings"
)

// ErrorKind classifies an engine failure for retry decisions and user
// messaging.
type ErrorKind string

const (
	// KindNetwork covers transient connectivity failures; worth retrying.
	KindNetwork ErrorKind = "network"

	// KindUnavailable covers videos that cannot be fetched at all
	// (private, removed, region-locked). Retrying cannot help.
	KindUnavailable ErrorKind = "unavailable"

	// KindProcessing covers post-processing failures after a successful
	// transfer.
	KindProcessing ErrorKind = "processing"

	// KindConfiguration covers missing external programs or bad local
	// setup.
	KindConfiguration ErrorKind = "configuration"
)

// EngineError wraps a yt-dlp failure with a user-presentable message.
type EngineError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *EngineError) Error() string {
	return e.Msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed.
func (e *EngineError) Retryable() bool {
	return e.Kind == KindNetwork
}

// classifyOutput inspects yt-dlp's stderr to produce a classified error
// with a message fit for display.
func classifyOutput(stderr string, err error) *EngineError {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "this video is not available"),
		strings.Contains(lower, "video has been removed"),
		strings.Contains(lower, "sign in to confirm"),
		strings.Contains(lower, "age-restricted"):
		return &EngineError{
			Kind: KindUnavailable,
			Msg:  "video is unavailable (private, removed, or restricted)",
			Err:  err,
		}

	case strings.Contains(lower, "ffmpeg not found"),
		strings.Contains(lower, "ffprobe not found"),
		strings.Contains(lower, "ffmpeg is not installed"):
		return &EngineError{
			Kind: KindConfiguration,
			Msg:  "ffmpeg is not installed; install it to enable audio extraction and merging",
			Err:  err,
		}

	case strings.Contains(lower, "postprocess"),
		strings.Contains(lower, "error opening output"),
		strings.Contains(lower, "conversion failed"):
		return &EngineError{
			Kind: KindProcessing,
			Msg:  "post-processing failed: " + lastErrorLine(stderr),
			Err:  err,
		}

	case strings.Contains(lower, "http error"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "temporary failure"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "urlopen error"):
		return &EngineError{
			Kind: KindNetwork,
			Msg:  "network error while downloading: " + lastErrorLine(stderr),
			Err:  err,
		}
	}

	msg := lastErrorLine(stderr)
	if msg == "" {
		msg = fmt.Sprintf("download failed: %v", err)
	}
	return &EngineError{Kind: KindProcessing, Msg: msg, Err: err}
}

// lastErrorLine returns the last "ERROR:" line from yt-dlp output, or
// the last non-empty line as a fallback.
func lastErrorLine(output string) string {
	lines := strings.Split(output, "\n")
	var lastNonEmpty string
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if lastNonEmpty == "" {
			lastNonEmpty = line
		}
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	return lastNonEmpty
}
