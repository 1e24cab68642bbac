// Package transcribe produces text transcriptions of downloaded media
// using the whisper CLI.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/utils/logging"
)

// WhisperCLI shells out to openai-whisper. MP4 input is converted to a
// mono 16kHz WAV first, since whisper's own decoder chokes on some
// merged containers.
type WhisperCLI struct {
	model  string
	ffmpeg string
}

// New returns a transcriber using the given whisper model. An empty
// model falls back to the default. ffmpegPath overrides the $PATH
// lookup when set.
func New(model, ffmpegPath string) *WhisperCLI {
	if model == "" {
		model = consts.DefaultWhisperModel
	}
	if ffmpegPath == "" {
		ffmpegPath = consts.FFmpeg
	}
	return &WhisperCLI{model: model, ffmpeg: ffmpegPath}
}

// Available reports whether the whisper CLI is installed.
func (w *WhisperCLI) Available() bool {
	_, err := exec.LookPath(consts.Whisper)
	return err == nil
}

// Transcribe runs whisper over the media file and returns the text.
func (w *WhisperCLI) Transcribe(ctx context.Context, path string) (string, error) {
	workDir, err := os.MkdirTemp("", "fetcharr-whisper-*")
	if err != nil {
		return "", fmt.Errorf("creating transcription workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logging.W("Failed to remove transcription workspace %q: %v", workDir, err)
		}
	}()

	input := path
	if strings.EqualFold(filepath.Ext(path), ".mp4") {
		input = filepath.Join(workDir, "audio.wav")
		if err := w.extractAudio(ctx, path, input); err != nil {
			return "", err
		}
	}

	cmd := exec.CommandContext(ctx, consts.Whisper, input,
		"--model", w.model,
		"--output_format", "txt",
		"--output_dir", workDir,
	)
	logging.D(2, "Running transcription: %v", cmd.String())

	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("whisper failed: %w: %s", err, firstLines(string(out), 3))
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	text, err := os.ReadFile(filepath.Join(workDir, base+".txt"))
	if err != nil {
		return "", fmt.Errorf("reading transcription output: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

// extractAudio converts media to the mono 16kHz WAV whisper expects.
func (w *WhisperCLI) extractAudio(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, w.ffmpeg,
		"-y",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		dst,
	)
	logging.D(2, "Extracting audio: %v", cmd.String())

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("audio extraction failed: %w: %s", err, firstLines(string(out), 3))
	}
	return nil
}

// firstLines returns at most n lines of s for error messages.
func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " / ")
}
